/*
 * driver - Narrow command vocabulary between the axis coordinator and a
 * raw motor driver (§4.5, §6 of the specification).
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

// Package driver defines the raw-unit command vocabulary a device driver
// must implement to be coordinated by package axis, plus the façade that
// sequences those primitives into the transactions spec.md §4.5 describes.
package driver

import (
	"context"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned (optionally wrapped) by a RawDriver whose
// hardware does not implement a given primitive. GetInfo is the only
// primitive the core expects this for (§4.5, §7 "unsupported driver op").
var ErrUnsupported = errors.New("driver: operation not supported")

// UpdateResult classifies what update_values() observed (§6 callback
// contract).
type UpdateResult int

const (
	NothingDone UpdateResult = iota
	CallbackData
	NewLimits
)

func (r UpdateResult) String() string {
	switch r {
	case CallbackData:
		return "CallbackData"
	case NewLimits:
		return "NewLimits"
	default:
		return "NothingDone"
	}
}

// Status is the raw status payload read back on a driver callback (§6).
type Status struct {
	RawPos  int64 // commanded raw position (RMP)
	RawEnc  int64 // raw encoder position (REP)
	Moving  bool  // MOVN
	RawDir  uint8 // 0/1, last observed raw direction of travel
	PlusLS  bool  // plus limit switch
	MinusLS bool  // minus limit switch
	HomeSW  bool  // home switch

	SlipStall bool // stall/slip detected
	CommError bool // communication fault
	Fault     bool // generic fault bit

	GainSupport         bool // driver exposes PID gain controls
	EncoderPresent      bool
	PositionMaintenance bool // driver is servoing in place (closed loop)
	HomeOnLimit         bool // driver can home off a limit switch (§4.2 item 5)
}

// NewLimitsInfo carries controller-supplied soft limits when UpdateValues
// returns NewLimits; the core clips DHLM/DLLM to this range (§6).
type NewLimitsInfo struct {
	DHLM float64
	DLLM float64
}

// RawDriver is implemented by a concrete (or simulated) device driver. It
// issues one raw primitive per call; Begin opens a transaction that the
// Facade uses to sequence the compound commands of §4.5.
type RawDriver interface {
	Begin(ctx context.Context) (Transaction, error)

	Stop(ctx context.Context) error
	LoadPos(ctx context.Context, newPos float64) error
	GetInfo(ctx context.Context) error
	SetHighLimit(ctx context.Context, dialValue float64) error
	SetLowLimit(ctx context.Context, dialValue float64) error
	SetEncRatio(ctx context.Context, num, den int) error
	EnableTorque(ctx context.Context) error
	DisableTorque(ctx context.Context) error
	SetPGain(ctx context.Context, coeff float64) error
	SetIGain(ctx context.Context, coeff float64) error
	SetDGain(ctx context.Context, coeff float64) error

	// UpdateValues is the driver callback contract of §6.
	UpdateValues(ctx context.Context) (UpdateResult, Status, *NewLimitsInfo, error)
}

// Transaction queues raw primitives for a single compound command; End
// commits and returns the combined error of every queued call (§4.5: "all
// commands are queued into a single transaction per call: start, n×build,
// end").
type Transaction interface {
	SetVelocity(vel float64) error
	SetVelBase(vbase float64) error
	SetAccel(accel float64) error
	MoveAbs(target float64) error
	MoveRel(delta float64) error
	Jog(vel float64) error
	UpdateJog(vel float64) error
	HomeFwd() error
	HomeRev() error
	Go() error

	End() error
}

// Driver is the narrow, raw-unit interface package axis actually calls.
// A Facade adapts a RawDriver to it by sequencing primitives per §4.5.
type Driver interface {
	Stop(ctx context.Context) error
	LoadPos(ctx context.Context, newPos float64) error
	GetInfo(ctx context.Context) error
	SetHighLimit(ctx context.Context, dialValue float64) error
	SetLowLimit(ctx context.Context, dialValue float64) error

	// MoveAbs/MoveRel emit SetVelocity, SetVelBase, SetAccel (if accel>0),
	// Move{Abs,Rel}, Go in that order. If vel<=vbase, vel is replaced with
	// vbase+1 before the transaction is built.
	MoveAbs(ctx context.Context, vel, vbase, accel, target float64) error
	MoveRel(ctx context.Context, vel, vbase, accel, delta float64) error

	// Jog emits SetVelBase, SetAccel (if accel>0), Jog.
	Jog(ctx context.Context, vel, vbase, accel float64) error
	UpdateJog(ctx context.Context, vel float64) error

	// HomeFwd/HomeRev emit SetVelocity, SetVelBase, SetAccel (if accel>0),
	// Home{Fwd,Rev}, Go.
	HomeFwd(ctx context.Context, vel, vbase, accel float64) error
	HomeRev(ctx context.Context, vel, vbase, accel float64) error

	SetEncRatio(ctx context.Context, num, den int) error
	EnableTorque(ctx context.Context) error
	DisableTorque(ctx context.Context) error
	SetGainP(ctx context.Context, coeff float64) error
	SetGainI(ctx context.Context, coeff float64) error
	SetGainD(ctx context.Context, coeff float64) error

	UpdateValues(ctx context.Context) (UpdateResult, Status, *NewLimitsInfo, error)
}
