package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// lazyAWS loads the shared AWS config at most once, and only for backends
// that need it, so local runs work without credentials.
type lazyAWS struct {
	cfg    aws.Config
	loaded bool
}

func (l *lazyAWS) load(ctx context.Context) (aws.Config, error) {
	if l.loaded {
		return l.cfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
	}
	l.cfg, l.loaded = cfg, true
	return cfg, nil
}
