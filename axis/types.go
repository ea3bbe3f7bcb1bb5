/*
 * axis - Motion coordinator core types.
 *
 * Copyright (c) 2026, the axiscore authors.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 */

// Package axis implements the motion-in-progress coordinator for a single
// axis (motor) record: the reactive state machine that mediates between a
// supervisor (target positions, jog/home requests, stop/pause/go) and a
// driver façade (raw motion primitives, raw status callbacks).
package axis

import "fmt"

// Direction is the user-coordinate sign, DIR in spec terms.
type Direction int

const (
	DirPos Direction = iota
	DirNeg
)

// Sign returns +1 for DirPos, -1 for DirNeg.
func (d Direction) Sign() float64 {
	if d == DirNeg {
		return -1
	}
	return 1
}

func (d Direction) String() string {
	if d == DirNeg {
		return "Neg"
	}
	return "Pos"
}

// SetMode is SET in spec terms: Use moves the motor, Set recalibrates
// coordinates without commanding motion.
type SetMode int

const (
	Use SetMode = iota
	Set
)

func (m SetMode) String() string {
	if m == Set {
		return "Set"
	}
	return "Use"
}

// FreezeOffset is FOFF: whether OFF is adjusted on DIR/OFF writes.
type FreezeOffset int

const (
	Variable FreezeOffset = iota
	Frozen
)

func (f FreezeOffset) String() string {
	if f == Frozen {
		return "Frozen"
	}
	return "Variable"
}

// Stance is SPMG: the operator's stop/pause/move/go disposition.
type Stance int

const (
	StanceGo Stance = iota
	StanceStop
	StancePause
	StanceMove
)

func (s Stance) String() string {
	switch s {
	case StanceStop:
		return "Stop"
	case StancePause:
		return "Pause"
	case StanceMove:
		return "Move"
	default:
		return "Go"
	}
}

// RetryMode is RMOD: how a retry leg's commanded distance is scaled.
type RetryMode int

const (
	RetryDefault RetryMode = iota
	RetryArithmetic
	RetryGeometric
	RetryInPosition
)

// StupState is the three-state status-update-request latch restored from
// original_source/axisApp/AxisSrc/axisRecord.cc (spec.md only says "if
// requested" - the original tracks Off/On/Busy so a second STUP=On write
// while a GetInfo is outstanding is a no-op).
type StupState int

const (
	StupOff StupState = iota
	StupOn
	StupBusy
)

// MIP is the motion-in-progress bitfield. Zero (MIPNone) means Done.
type MIP uint32

const (
	MIPJogF MIP = 1 << iota
	MIPJogR
	MIPJogBL1
	MIPJogBL2
	MIPHomF
	MIPHomR
	MIPMove
	MIPMoveBL
	MIPRetry
	MIPLoadPos
	MIPStop
	MIPDelayReq
	MIPDelayAck
	MIPJogReq
	MIPJogStop
	MIPExternal

	MIPNone MIP = 0
)

// Done reports whether no motion phase is in progress.
func (m MIP) Done() bool { return m == MIPNone }

// Has reports whether all bits of mask are set.
func (m MIP) Has(mask MIP) bool { return m&mask == mask }

// Any reports whether any bit of mask is set.
func (m MIP) Any(mask MIP) bool { return m&mask != 0 }

func (m MIP) String() string {
	if m == MIPNone {
		return "Done"
	}
	names := []struct {
		bit  MIP
		name string
	}{
		{MIPJogF, "JogF"}, {MIPJogR, "JogR"}, {MIPJogBL1, "JogBL1"},
		{MIPJogBL2, "JogBL2"}, {MIPHomF, "HomF"}, {MIPHomR, "HomR"},
		{MIPMove, "Move"}, {MIPMoveBL, "MoveBL"}, {MIPRetry, "Retry"},
		{MIPLoadPos, "LoadPos"}, {MIPStop, "Stop"}, {MIPDelayReq, "DelayReq"},
		{MIPDelayAck, "DelayAck"}, {MIPJogReq, "JogReq"}, {MIPJogStop, "JogStop"},
		{MIPExternal, "External"},
	}
	out := ""
	for _, n := range names {
		if m.Has(n.bit) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	return out
}

// Severity mirrors the handful of alarm severities the core can post (§7).
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityInvalid
)

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "MINOR"
	case SeverityMajor:
		return "MAJOR"
	case SeverityInvalid:
		return "INVALID"
	default:
		return "NO_ALARM"
	}
}

// AlarmKind names why a severity was posted, for subscribers that want to
// distinguish e.g. a limit violation from a retry miss.
type AlarmKind int

const (
	AlarmNone AlarmKind = iota
	AlarmCommError
	AlarmMotion
	AlarmHighLimit
	AlarmLowLimit
	AlarmRetryMiss
	AlarmUndefined
)

// ValidationError describes a parameter-family write that would violate a
// cross-field invariant (§3 parameter family, §8 invariant 4/5). The Set*
// methods of Record do not return it: they normalise the family in place
// (recomputeVelocities, normalizeDeadband) instead.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("axis: invalid %s: %s", e.Field, e.Reason)
}
