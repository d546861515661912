//
// Copyright 2022 The Sigstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package io

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Logger receives validation results. It writes to Err, and to the log
	// file when one is configured.
	Logger *zap.Logger

	close []func() error
}

func New(logPath string) *Streams {
	s := &Streams{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.AddSync(s.Err), zap.WarnLevel),
	}
	if logPath != "" {
		// The file gets every decision, accepted ones included.
		f := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		s.close = append(s.close, f.Close)
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoder), zapcore.AddSync(f), zap.DebugLevel))
	}
	s.Logger = zap.New(zapcore.NewTee(cores...))
	s.close = append([]func() error{s.sync}, s.close...)

	return s
}

func (s *Streams) sync() error {
	// Sync errors from stderr are ignored.
	_ = s.Logger.Sync()
	return nil
}

// Wrap runs fn and prints its error. A panic in fn is recovered and returned
// as an error, so callers never treat it as success.
func (s *Streams) Wrap(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("panic", zap.Any("recovered", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
			fmt.Fprintln(s.Err, err)
		}
	}()

	if err = fn(); err != nil {
		fmt.Fprintln(s.Err, err)
	}
	return err
}

func (s *Streams) Close() error {
	for _, fn := range s.close {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
