// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package astimewheel

import (
	"errors"
)

var ErrTimerShutDown = errors.New("timeout submitted on a stopped timer")
var ErrInvalidTickDuration = errors.New("tick duration must be positive")
var ErrInvalidTicksPerWheel = errors.New("ticks per wheel must be positive")
var ErrInvalidParameters = errors.New("invalid parameters")
var ErrInvalidDelay = errors.New("delay must be positive")
var ErrInvalidTimeUnit = errors.New("invalid or missing time unit")
