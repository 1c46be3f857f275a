// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wxLog

import (
	"fmt"

	"github.com/rs/zerolog"
)

type zeroLogger struct {
	mod    string
	root   zerolog.Logger
	logger *zerolog.Logger
}

// Zerolog wraps a zerolog.Logger so it can be passed anywhere a Logger is expected.
//
// Sub-loggers get a "module" field, nested modules are joined with a slash.
func Zerolog(log zerolog.Logger) Logger {
	return &zeroLogger{root: log, logger: &log}
}

func (z *zeroLogger) Errorf(msg string, args ...any) { z.logger.Error().Msgf(msg, args...) }
func (z *zeroLogger) Warnf(msg string, args ...any)  { z.logger.Warn().Msgf(msg, args...) }
func (z *zeroLogger) Infof(msg string, args ...any)  { z.logger.Info().Msgf(msg, args...) }
func (z *zeroLogger) Debugf(msg string, args ...any) { z.logger.Debug().Msgf(msg, args...) }

func (z *zeroLogger) Sub(module string) Logger {
	if module == "" {
		return z
	}
	if z.mod != "" {
		module = fmt.Sprintf("%s/%s", z.mod, module)
	}
	sub := z.root.With().Str("module", module).Logger()
	return &zeroLogger{mod: module, root: z.root, logger: &sub}
}
