package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mutgos/mutgos/pkg/types"
)

var Logger zerolog.Logger

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration, sourced from pkg/config's
// log.level/log.json knobs.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger tagging the subsystem (storage,
// dbaccess, updatemgr, permission, clientmsg, channel, ...).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithSite creates a child logger tagging a SiteId.
func WithSite(site types.SiteId) zerolog.Logger {
	return Logger.With().Uint16("site", uint16(site)).Logger()
}

// WithEntity creates a child logger tagging a fully-qualified Id.
func WithEntity(id types.Id) zerolog.Logger {
	return Logger.With().Str("entity", id.String()).Logger()
}

// WithRequester creates a child logger tagging the Id that originated a
// security-checked operation.
func WithRequester(id types.Id) zerolog.Logger {
	return Logger.With().Str("requester", id.String()).Logger()
}

// WithChannel creates a child logger tagging a channel; pkg/channel
// passes the channel's name.
func WithChannel(channelId string) zerolog.Logger {
	return Logger.With().Str("channel", channelId).Logger()
}

func Info(msg string)  { Logger.Info().Msg(msg) }
func Debug(msg string) { Logger.Debug().Msg(msg) }
func Warn(msg string)  { Logger.Warn().Msg(msg) }
func Error(msg string) { Logger.Error().Msg(msg) }

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) { Logger.Fatal().Msg(msg) }
