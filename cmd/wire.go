package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/api/handlers"
	"github.com/linesmerrill/sos-dispatch-api/api/scheduler"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/databases"
	"github.com/linesmerrill/sos-dispatch-api/databases/memory"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/metrics"
	"github.com/linesmerrill/sos-dispatch-api/notifications"
	"github.com/linesmerrill/sos-dispatch-api/verification"
)

const connectTimeout = 10 * time.Second

// storage is the set of persistence adapters picked by DB_DRIVER
type storage struct {
	directory dispatch.Directory
	requests  dispatch.Store
	citizens  dispatch.Citizens
	lock      scheduler.Locker
	close     func(ctx context.Context) error
}

// service holds everything the serve and sweep commands run
type service struct {
	conf      *config.Config
	store     *storage
	engine    *dispatch.Engine
	projector *dispatch.Projector
	metrics   *metrics.Collector
	verifier  handlers.OTPVerifier
	scheduler *scheduler.Scheduler
}

func build(ctx context.Context, conf *config.Config) (*service, error) {
	st, err := openStorage(ctx, conf)
	if err != nil {
		return nil, err
	}
	if conf.RedisURL != "" {
		opt, err := redis.ParseURL(conf.RedisURL)
		if err != nil {
			_ = st.close(ctx)
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		st.lock = scheduler.NewRedisLock(rdb)
		closeStore := st.close
		st.close = func(ctx context.Context) error {
			_ = rdb.Close()
			return closeStore(ctx)
		}
		zap.S().Infow("using redis sweep lock", "addr", opt.Addr)
	}

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		_ = st.close(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}

	engine, err := dispatch.NewEngine(dispatch.Options{
		Directory:        st.directory,
		Store:            st.requests,
		Citizens:         st.citizens,
		Notifier:         newNotifier(conf),
		Metrics:          collector,
		TTL:              conf.DispatchTTL,
		MaxRadiusMeters:  conf.DispatchMaxRadiusMeters,
		MaxReassignments: conf.DispatchMaxReassignments,
		ActionTimeout:    conf.RequestTimeout,
		Retention:        conf.RequestRetention,
	})
	if err != nil {
		_ = st.close(ctx)
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}

	return &service{
		conf:      conf,
		store:     st,
		engine:    engine,
		projector: dispatch.NewProjector(st.directory, st.requests, st.citizens, dispatch.SystemClock{}),
		metrics:   collector,
		verifier:  newVerifier(conf),
		scheduler: scheduler.NewScheduler(engine, st.requests, st.lock, conf.SweepSchedule, conf.ReassignGrace),
	}, nil
}

func (s *service) close(ctx context.Context) {
	s.scheduler.Stop()
	s.engine.Close()
	if err := s.store.close(ctx); err != nil {
		zap.S().With(zap.Error(err)).Error("failed to close storage")
	}
}

func openStorage(ctx context.Context, conf *config.Config) (*storage, error) {
	switch conf.DBDriver {
	case "memory":
		zap.S().Warn("using in-memory storage, data is lost on restart")
		return &storage{
			directory: memory.NewDirectory(),
			requests:  memory.NewStore(),
			citizens:  memory.NewCitizens(),
			lock:      scheduler.NewLocalLock(),
			close:     func(context.Context) error { return nil },
		}, nil
	case "mongo":
		return openMongo(ctx, conf)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", conf.DBDriver)
	}
}

func openMongo(ctx context.Context, conf *config.Config) (*storage, error) {
	client, err := databases.NewClient(conf)
	if err != nil {
		return nil, fmt.Errorf("mongo client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := databases.NewDatabase(conf, client)
	if err := databases.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	zap.S().Infow("connected to mongo", "database", conf.DatabaseName)
	return &storage{
		directory: databases.NewResponderDatabase(db),
		requests:  databases.NewRequestDatabase(db),
		citizens:  databases.NewCitizenDatabase(db),
		lock:      databases.NewLockDatabase(db),
		close:     client.Disconnect,
	}, nil
}

func newNotifier(conf *config.Config) *notifications.Gateway {
	var sms notifications.SMSSender
	if conf.Twilio.Enabled() {
		sms = notifications.NewTwilioSMS(conf.Twilio.AccountSID, conf.Twilio.AuthToken, conf.Twilio.MessagingServiceSID, conf.Twilio.FromNumber)
	} else {
		zap.S().Warn("twilio credentials missing, emergency contacts will not be texted")
	}
	var email notifications.EmailSender
	if conf.SendGrid.APIKey != "" {
		email = notifications.NewSendGridEmail(conf.SendGrid.APIKey, conf.SendGrid.FromEmail)
	}
	return notifications.NewGateway(sms, email)
}

func newVerifier(conf *config.Config) handlers.OTPVerifier {
	if conf.Twilio.VerifyServiceSID == "" {
		zap.S().Warn("TWILIO_VERIFY_SERVICE_SID not set, otp routes are disabled")
		return nil
	}
	v, err := verification.New(conf.Twilio.AccountSID, conf.Twilio.AuthToken, conf.Twilio.VerifyServiceSID)
	if err != nil {
		zap.S().With(zap.Error(err)).Error("failed to set up phone verification, otp routes are disabled")
		return nil
	}
	return v
}
