package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/MrSnakeDoc/lbsync/internal/logger"
)

func validOptions(addr string) ConnectOptions {
	return ConnectOptions{
		Addr:           addr,
		ConnectTimeout: 100 * time.Millisecond,
		RetryInterval:  10 * time.Millisecond,
		MaxWait:        20 * time.Millisecond,
		PingTimeout:    20 * time.Millisecond,
		DialTimeout:    20 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestConnectOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConnectOptions)
		wantErr bool
	}{
		{"valid", func(*ConnectOptions) {}, false},
		{"empty address", func(o *ConnectOptions) { o.Addr = "" }, true},
		{"no connect timeout", func(o *ConnectOptions) { o.ConnectTimeout = 0 }, true},
		{"no retry interval", func(o *ConnectOptions) { o.RetryInterval = 0 }, true},
		{"no max wait", func(o *ConnectOptions) { o.MaxWait = 0 }, true},
		{"no ping timeout", func(o *ConnectOptions) { o.PingTimeout = 0 }, true},
		{"negative warn threshold", func(o *ConnectOptions) { o.WarnThreshold = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions("localhost:6379")
			tt.mutate(&opts)
			if err := opts.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewUnreachable(t *testing.T) {
	// Grab a free port and release it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	start := time.Now()
	client, err := New(context.Background(), validOptions(addr), logger.Nop())
	if err == nil {
		_ = client.Close()
		t.Fatal("New() should fail when redis is unreachable")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("New() took %v, should give up after ConnectTimeout", elapsed)
	}
}
