package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Defaults applied when the matching environment variable is unset or invalid
const (
	DefaultPort              = "8080"
	DefaultDispatchTTL       = 5 * time.Minute
	DefaultMaxRadiusMeters   = 20000.0
	DefaultRequestTimeout    = 10 * time.Second
	DefaultSweepSchedule     = "@every 15s"
	DefaultReassignGrace     = 30 * time.Second
	DefaultRequestRetention  = 30 * 24 * time.Hour
	DefaultDatabaseDriver    = "mongo"
	DefaultSendGridFromEmail = "no-reply@sos-dispatch.app"
)

// Config holds the project config values
type Config struct {
	Env          string
	Port         string
	BaseUrl      string
	DBDriver     string
	Url          string
	DatabaseName string
	RedisURL     string

	DispatchTTL              time.Duration
	DispatchMaxRadiusMeters  float64
	DispatchMaxReassignments int
	RequestTimeout           time.Duration
	SweepSchedule            string
	ReassignGrace            time.Duration
	RequestRetention         time.Duration

	Twilio   TwilioConfig
	SendGrid SendGridConfig
}

// TwilioConfig holds the credentials used for sms and phone verification
type TwilioConfig struct {
	AccountSID          string
	AuthToken           string
	MessagingServiceSID string
	FromNumber          string
	VerifyServiceSID    string
}

// Enabled reports whether enough credentials are present to call twilio
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != ""
}

// SendGridConfig holds the credentials for the alert email
type SendGridConfig struct {
	APIKey    string
	FromEmail string
}

// New sets up all config related services
func New() *Config {
	k := koanf.New(".")
	// a nil parser with the env provider cannot fail
	_ = k.Load(env.Provider("", ".", func(s string) string { return s }), nil)

	appEnv := k.String("ENV")
	InitLogger(appEnv)

	return &Config{
		Env:          appEnv,
		Port:         stringEnv(k, "PORT", DefaultPort),
		BaseUrl:      k.String("BASE_URL"),
		DBDriver:     stringEnv(k, "DB_DRIVER", DefaultDatabaseDriver),
		Url:          k.String("DB_URI"),
		DatabaseName: k.String("DB_NAME"),
		RedisURL:     k.String("REDIS_URL"),

		DispatchTTL:              durationEnv(k, "DISPATCH_TTL", DefaultDispatchTTL),
		DispatchMaxRadiusMeters:  floatEnv(k, "DISPATCH_MAX_RADIUS_METERS", DefaultMaxRadiusMeters),
		DispatchMaxReassignments: intEnv(k, "DISPATCH_MAX_REASSIGNMENTS", 0),
		RequestTimeout:           durationEnv(k, "REQUEST_TIMEOUT", DefaultRequestTimeout),
		SweepSchedule:            stringEnv(k, "SWEEP_SCHEDULE", DefaultSweepSchedule),
		ReassignGrace:            durationEnv(k, "REASSIGN_GRACE", DefaultReassignGrace),
		RequestRetention:         durationEnv(k, "REQUEST_RETENTION", DefaultRequestRetention),

		Twilio: TwilioConfig{
			AccountSID:          k.String("TWILIO_ACCOUNT_SID"),
			AuthToken:           k.String("TWILIO_AUTH_TOKEN"),
			MessagingServiceSID: k.String("TWILIO_MESSAGING_SERVICE_SID"),
			FromNumber:          k.String("TWILIO_FROM_NUMBER"),
			VerifyServiceSID:    k.String("TWILIO_VERIFY_SERVICE_SID"),
		},
		SendGrid: SendGridConfig{
			APIKey:    k.String("SENDGRID_API_KEY"),
			FromEmail: stringEnv(k, "SENDGRID_FROM_EMAIL", DefaultSendGridFromEmail),
		},
	}
}

// InitLogger builds the zap logger for env and installs it as the global logger
func InitLogger(env string) {
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(zap.Error(err)).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: fmt.Sprint(err)}})
	w.Write(b)
}

func stringEnv(k *koanf.Koanf, key, def string) string {
	if v := k.String(key); v != "" {
		return v
	}
	return def
}

func durationEnv(k *koanf.Koanf, key string, def time.Duration) time.Duration {
	v := k.String(key)
	if v == "" {
		return def
	}
	d := k.Duration(key)
	if d <= 0 {
		zap.S().Warnw("invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func intEnv(k *koanf.Koanf, key string, def int) int {
	v := k.String(key)
	if v == "" {
		return def
	}
	i := k.Int(key)
	if i < 0 || (i == 0 && v != "0") {
		zap.S().Warnw("invalid integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func floatEnv(k *koanf.Koanf, key string, def float64) float64 {
	v := k.String(key)
	if v == "" {
		return def
	}
	f := k.Float64(key)
	if f <= 0 {
		zap.S().Warnw("invalid number, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}
