package predictor

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Regressor sources
const (
	SourceFile      = "file"
	SourceRedis     = "redis"
	SourceReference = "reference"
)

// Options selects where predictions come from
type Options struct {
	Source       string
	ArtifactPath string

	// Redis settings, used by SourceRedis only
	Client       *redis.Client
	InputStream  string
	OutputStream string
	Timeout      time.Duration
}

// Open returns the regressor named by opts.Source.
// A file source without a trained artifact fails with ErrPredictorUnavailable.
func Open(opts Options) (Regressor, error) {
	switch opts.Source {
	case SourceFile, "":
		m, err := LoadArtifact(opts.ArtifactPath)
		if err != nil {
			return nil, err
		}
		return m, nil
	case SourceRedis:
		if opts.Client == nil {
			return nil, fmt.Errorf("redis predictor needs a client")
		}
		return NewRemoteRegressor(opts.Client, opts.InputStream, opts.OutputStream, opts.Timeout), nil
	case SourceReference:
		return NewReferenceModel(), nil
	}
	return nil, fmt.Errorf("unknown predictor source %q", opts.Source)
}
