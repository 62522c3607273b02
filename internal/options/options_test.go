package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type readerConfig struct {
	window  int64
	verbose bool
}

func (c *readerConfig) setWindow(n int64) error {
	if n < 0 {
		return errors.New("window cannot be negative")
	}
	c.window = n

	return nil
}

func TestOption_New(t *testing.T) {
	cfg := &readerConfig{}

	t.Run("applies fallible option", func(t *testing.T) {
		opt := New(func(c *readerConfig) error {
			return c.setWindow(4096)
		})

		require.NoError(t, opt.apply(cfg))
		require.Equal(t, int64(4096), cfg.window)
	})

	t.Run("propagates option error", func(t *testing.T) {
		opt := New(func(c *readerConfig) error {
			return c.setWindow(-1)
		})

		err := opt.apply(cfg)
		require.Error(t, err)
		require.Contains(t, err.Error(), "window cannot be negative")
	})
}

func TestOption_NoError(t *testing.T) {
	cfg := &readerConfig{}

	opt := NoError(func(c *readerConfig) {
		c.verbose = true
	})

	require.NoError(t, opt.apply(cfg))
	require.True(t, cfg.verbose)
}

func TestOption_Apply(t *testing.T) {
	t.Run("applies options in order", func(t *testing.T) {
		cfg := &readerConfig{}

		err := Apply(cfg,
			New(func(c *readerConfig) error { return c.setWindow(1024) }),
			NoError(func(c *readerConfig) { c.verbose = true }),
		)
		require.NoError(t, err)
		require.Equal(t, int64(1024), cfg.window)
		require.True(t, cfg.verbose)
	})

	t.Run("stops at first error", func(t *testing.T) {
		cfg := &readerConfig{}

		err := Apply(cfg,
			New(func(c *readerConfig) error { return c.setWindow(512) }),
			New(func(c *readerConfig) error { return c.setWindow(-1) }),
			NoError(func(c *readerConfig) { c.verbose = true }),
		)
		require.Error(t, err)
		require.Equal(t, int64(512), cfg.window)
		require.False(t, cfg.verbose, "options after the failing one must not run")
	})

	t.Run("empty option list is a no-op", func(t *testing.T) {
		cfg := &readerConfig{}
		require.NoError(t, Apply(cfg))
		require.Equal(t, readerConfig{}, *cfg)
	})
}

func TestOption_DifferentTargetTypes(t *testing.T) {
	var n int
	opt := NoError(func(p *int) {
		*p = 42
	})

	require.NoError(t, opt.apply(&n))
	require.Equal(t, 42, n)
}
