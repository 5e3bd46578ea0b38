// Package app wires configuration into the store, AWS clients and
// pipeline components shared by both binaries.
package app

import (
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"portrait-pipeline/internal/config"
	"portrait-pipeline/internal/events"
	"portrait-pipeline/internal/inference"
	"portrait-pipeline/internal/objectstore"
	"portrait-pipeline/internal/pipeline"
	"portrait-pipeline/internal/store"
	"portrait-pipeline/pkg/utils"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	Store  store.Store

	sess *session.Session
}

// New opens the configured store. AWS clients are created on first use
// so that a local sqlite run without credentials still starts.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := store.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.Store = s
	case config.BackendDynamoDB:
		sess, err := a.session()
		if err != nil {
			return nil, err
		}
		a.Store = store.NewDynamoStore(dynamodb.New(sess), store.DynamoTables{
			Process:      cfg.DynamoDB.ProcessTable,
			Display:      cfg.DynamoDB.DisplayTable,
			BaseResource: cfg.DynamoDB.BaseResourceTable,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	log.Info("store ready", zap.String("backend", cfg.Backend))
	return a, nil
}

// Load reads the configuration, runs the binary's own validation, builds
// the logger and opens the App.
func Load(v *viper.Viper, configFile string, validate func(*config.Config) error) (*App, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, err
		}
	}

	log, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, log)
}

func (a *App) session() (*session.Session, error) {
	if a.sess != nil {
		return a.sess, nil
	}

	awsCfg := aws.Config{
		Region:           aws.String(a.Config.AWS.Region),
		S3ForcePathStyle: aws.Bool(a.Config.AWS.S3ForcePathStyle),
	}
	if a.Config.AWS.Endpoint != "" {
		awsCfg.Endpoint = aws.String(a.Config.AWS.Endpoint)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	a.sess = sess
	return sess, nil
}

// Options maps the configuration onto pipeline settings.
func (a *App) Options() pipeline.Options {
	c := a.Config
	swapOutput := utils.PathResult
	if c.Swap.Output == config.SwapOutputSwapped {
		swapOutput = utils.PathSwapped
	}
	return pipeline.Options{
		Bucket:            c.S3.Bucket,
		Layout:            utils.NewObjectLayout(c.Paths.Raw, c.Paths.Cropped, c.Paths.Swapped, c.Paths.Result),
		URLTTL:            c.URLTTL,
		UploadContentType: c.UploadContentType,
		SwapEndpoint:      c.Inference.SwapEndpoint,
		RestoreEndpoint:   c.Inference.RestoreEndpoint,
		SwapOutput:        swapOutput,
	}
}

func (a *App) Presigner() (objectstore.Presigner, error) {
	sess, err := a.session()
	if err != nil {
		return nil, err
	}
	return objectstore.NewS3Presigner(s3.New(sess), a.Config.S3.Bucket), nil
}

func (a *App) Invoker() (inference.Invoker, error) {
	timeout := a.Config.Inference.Timeout
	if a.Config.Inference.Backend == config.InferenceHTTP {
		return inference.NewHTTPInvoker(&http.Client{}, timeout), nil
	}

	sess, err := a.session()
	if err != nil {
		return nil, err
	}
	return inference.NewSageMakerInvoker(sagemakerruntime.New(sess), timeout), nil
}

// Gateways builds the request gateway, result gateway and status reader.
func (a *App) Gateways() (*pipeline.RequestGateway, *pipeline.ResultGateway, *pipeline.StatusReader, error) {
	presigner, err := a.Presigner()
	if err != nil {
		return nil, nil, nil, err
	}
	opts := a.Options()
	return pipeline.NewRequestGateway(a.Store, a.Store, presigner, opts, a.Log),
		pipeline.NewResultGateway(a.Store, presigner, opts),
		pipeline.NewStatusReader(a.Store),
		nil
}

// Dispatcher builds every stage and routes notifications between them.
// The restore stage exists only when swap writes to the swapped path.
func (a *App) Dispatcher() (*pipeline.Dispatcher, error) {
	invoker, err := a.Invoker()
	if err != nil {
		return nil, err
	}
	opts := a.Options()

	var restore pipeline.Handler
	if opts.SwapOutput == utils.PathSwapped {
		restore = pipeline.NewRestoreStage(a.Store, invoker, opts, a.Log)
	}
	return pipeline.NewDispatcher(opts,
		pipeline.NewSwapStage(a.Store, invoker, opts, a.Log),
		restore,
		pipeline.NewCompletionStage(a.Store, a.Store, a.Log),
		a.Log), nil
}

func (a *App) Consumer(handler events.Handler) (*events.Consumer, error) {
	sess, err := a.session()
	if err != nil {
		return nil, err
	}
	return events.NewConsumer(sqs.New(sess), events.ConsumerConfig{
		QueueURL:      a.Config.SQS.QueueURL,
		Workers:       a.Config.SQS.Workers,
		WaitSeconds:   a.Config.SQS.WaitSeconds,
		ShutdownGrace: a.Config.SQS.ShutdownGrace,
	}, handler, a.Log), nil
}

func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.Store.Close()
}
