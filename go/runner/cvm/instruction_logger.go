// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cvm

import (
	"github.com/sirupsen/logrus"
)

// loggingRunner is a runner that logs each executed instruction together
// with the register state before its execution. If no logger is provided,
// the standard logger of logrus is used.
type loggingRunner struct {
	log *logrus.Logger
}

func newLogger(log *logrus.Logger) loggingRunner {
	return loggingRunner{log: log}
}

func (l loggingRunner) run(m *machine) (status, error) {
	log := l.log
	if log == nil {
		log = logrus.StandardLogger()
	}
	status := statusRunning
	var err error
	for status == statusRunning {
		if m.pc.Segment == programSegment && m.pc.Offset >= 0 && m.pc.Offset < len(m.program.instructions) {
			entry := log.WithFields(logrus.Fields{
				"step": m.steps,
				"pc":   m.pc.String(),
				"ap":   m.ap.String(),
				"fp":   m.fp.String(),
			})
			if decoded := m.program.instructions[m.pc.Offset]; decoded.err == nil {
				entry.Info(decoded.instruction.String())
			} else {
				entry.Info("<data>")
			}
		}
		status, err = steps(m, true)
		if err != nil {
			return status, err
		}
	}
	if status == statusFaulted {
		log.WithField("step", m.steps).Warn(m.fault.Error())
	}
	return status, nil
}
