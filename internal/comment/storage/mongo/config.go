package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrConfParamMissing = fmt.Errorf("configuration parameter missing")

type Config struct {
	URI            string
	DBName         string
	ConnectTimeout time.Duration
}

func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("%w: mongo uri", ErrConfParamMissing)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: mongo database", ErrConfParamMissing)
	}
	return nil
}

func (c *Config) Options() *options.ClientOptions {
	opt := options.Client().ApplyURI(c.URI)
	if c.ConnectTimeout > 0 {
		opt.SetConnectTimeout(c.ConnectTimeout)
		opt.SetServerSelectionTimeout(c.ConnectTimeout)
	}
	return opt
}
