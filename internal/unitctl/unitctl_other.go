//go:build !linux

package unitctl

import "context"

type Controller struct{}

func Dial(context.Context) (*Controller, error) { return nil, ErrUnsupported }

func (c *Controller) Do(context.Context, Op, string) error { return ErrUnsupported }

func (c *Controller) Close() error { return nil }
