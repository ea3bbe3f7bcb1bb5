/*
 * axissim - Demo harness main.
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

// axissim wires a config file of axis definitions to a simulated driver
// and drives each axis.Record with a small stdin command shell, so the
// state machine can be exercised interactively without real hardware.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"

	"github.com/axiscore/axis/axis"
	"github.com/axiscore/axis/axis/driver"
	"github.com/axiscore/axis/axis/logging"
	"github.com/axiscore/axis/axis/schedule"
	"github.com/axiscore/axis/config"
)

var log *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "axissim.toml", "Axis configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optTick := getopt.StringLong("tick", 't', "5ms", "Simulated driver step interval")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var out *os.File
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "axissim: can't create log file:", err)
			os.Exit(1)
		}
		out = f
	}
	log = slog.New(logging.NewHandler(out, slog.LevelInfo))
	slog.SetDefault(log)

	log.Info("axissim started")

	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		log.Error("configuration file not found", slog.String("path", *optConfig))
		os.Exit(1)
	}

	defs, err := config.Load(*optConfig)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	tick, err := time.ParseDuration(*optTick)
	if err != nil {
		log.Error("bad tick duration", slog.String("tick", *optTick))
		os.Exit(1)
	}

	sched := schedule.NewRegistry()
	records := make(map[string]*axis.Record, len(defs))
	fakes := make([]*driver.Fake, 0, len(defs))
	ctx := context.Background()

	for i, def := range defs {
		axisTick := tick
		if def.DriverTick != "" {
			if axisTick, err = time.ParseDuration(def.DriverTick); err != nil {
				log.Error("bad driver_tick", slog.String("axis", def.Name), slog.String("tick", def.DriverTick))
				os.Exit(1)
			}
		}
		fake := driver.NewFake().WithTick(axisTick)
		fakes = append(fakes, fake)
		facade := driver.NewFacade(fake)

		r := axis.New(def.Name, facade, sched, i, log.With(slog.String("axis", def.Name)))
		applyDef(ctx, r, def)
		r.OnChange = logChanges(def.Name)

		if err := r.InitFromDriver(ctx); err != nil {
			log.Error("init from driver failed", slog.String("axis", def.Name), slog.String("err", err.Error()))
			os.Exit(1)
		}
		records[def.Name] = r
	}

	log.Info("axes configured", slog.Int("count", len(records)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	stopPolling := make(chan struct{})
	go pollLoop(ctx, records, tick, stopPolling)

	cmds := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			cmds <- line
		}
	}()

loop:
	for {
		select {
		case <-sigChan:
			fmt.Println("axissim: quit signal received")
			break loop
		case line := <-cmds:
			runCommand(ctx, records, line)
		}
	}

	close(stopPolling)
	for _, f := range fakes {
		f.Close()
	}
	log.Info("axissim shutting down")
}

func applyDef(ctx context.Context, r *axis.Record, def config.AxisDef) {
	if def.MRES != 0 {
		r.SetMRES(ctx, def.MRES)
	}
	if def.ERES != 0 {
		r.SetERES(ctx, def.ERES)
	}
	if def.SREV != 0 {
		r.SetSREV(ctx, def.SREV)
	}
	if def.S != 0 || def.SBAS != 0 || def.SMAX != 0 || def.SBAK != 0 {
		r.SetSpeeds(ctx, def.S, def.SBAS, def.SMAX, def.SBAK)
	}
	if def.JVEL != 0 {
		r.SetJVEL(ctx, def.JVEL)
	}
	if def.JAR != 0 {
		r.SetJAR(ctx, def.JAR)
	}
	if def.HVEL != 0 {
		r.SetHVEL(ctx, def.HVEL)
	}
	if def.ACCL != 0 {
		r.SetACCL(ctx, def.ACCL)
	}
	if def.BACC != 0 {
		r.SetBACC(ctx, def.BACC)
	}
	if def.BDST != 0 {
		r.SetBDST(ctx, def.BDST)
	}
	if def.SDBD != 0 {
		r.SetSDBD(ctx, def.SDBD)
	}
	if def.RDBD != 0 {
		r.SetRDBD(ctx, def.RDBD)
	}
	if def.RTRY != 0 {
		r.SetRTRY(ctx, def.RTRY)
	}
	if def.RMOD != "" {
		r.SetRMOD(ctx, parseRMOD(def.RMOD))
	}
	if def.DLY != 0 {
		r.SetDLY(ctx, def.DLY)
	}
	if def.DHLM != 0 || def.DLLM != 0 {
		r.SetDHLM(ctx, def.DHLM)
		r.SetDLLM(ctx, def.DLLM)
	}
}

// logChanges returns an axis.Subscriber that logs the fields a processing
// pass actually mutated, one attr per field, in a single Debug-level
// record.
func logChanges(name string) axis.Subscriber {
	return func(events []axis.ChangeEvent) {
		attrs := make([]any, 0, len(events)+1)
		attrs = append(attrs, slog.String("axis", name))
		for _, ev := range events {
			attrs = append(attrs, slog.Any(ev.Field, ev.Value))
		}
		log.Debug("axis changed", attrs...)
	}
}

func parseRMOD(s string) axis.RetryMode {
	switch strings.ToLower(s) {
	case "arithmetic":
		return axis.RetryArithmetic
	case "geometric":
		return axis.RetryGeometric
	case "in_position", "inposition":
		return axis.RetryInPosition
	default:
		return axis.RetryDefault
	}
}

// pollLoop periodically reads each axis's driver status, the same
// stimulus an EPICS scan task would deliver (§2).
func pollLoop(ctx context.Context, records map[string]*axis.Record, tick time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, r := range records {
				if err := r.Poll(ctx); err != nil {
					log.Warn("poll failed", slog.String("axis", r.Name), slog.String("err", err.Error()))
				}
			}
		}
	}
}

func runCommand(ctx context.Context, records map[string]*axis.Record, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	cmd := strings.ToLower(fields[0])
	if cmd == "help" {
		printHelp()
		return
	}
	if cmd == "list" {
		for name := range records {
			fmt.Println(name)
		}
		return
	}
	if len(fields) < 2 {
		fmt.Println("axissim: need an axis name, try: help")
		return
	}

	r, ok := records[fields[1]]
	if !ok {
		fmt.Printf("axissim: unknown axis %q\n", fields[1])
		return
	}

	switch cmd {
	case "move":
		if len(fields) < 3 {
			fmt.Println("usage: move <axis> <value>")
			return
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			fmt.Println("bad value:", err)
			return
		}
		r.SetVAL(ctx, v)
	case "jog":
		if len(fields) < 3 || (fields[2] != "fwd" && fields[2] != "rev") {
			fmt.Println("usage: jog <axis> fwd|rev")
			return
		}
		r.SetJog(ctx, fields[2] == "fwd", true)
	case "stopjog":
		r.SetJog(ctx, r.JOGF, false)
	case "home":
		if len(fields) < 3 || (fields[2] != "fwd" && fields[2] != "rev") {
			fmt.Println("usage: home <axis> fwd|rev")
			return
		}
		r.SetHome(ctx, fields[2] == "fwd")
	case "stop":
		r.Stop(ctx)
	case "spmg":
		if len(fields) < 3 {
			fmt.Println("usage: spmg <axis> stop|pause|move|go")
			return
		}
		var s axis.Stance
		switch strings.ToLower(fields[2]) {
		case "stop":
			s = axis.StanceStop
		case "pause":
			s = axis.StancePause
		case "move":
			s = axis.StanceMove
		default:
			s = axis.StanceGo
		}
		r.SetSPMG(ctx, s)
	case "status":
		printStatus(r)
	default:
		fmt.Printf("axissim: unknown command %q, try: help\n", cmd)
	}
}

func printStatus(r *axis.Record) {
	fmt.Printf("%s: VAL=%.4f RBV=%.4f DMOV=%v MOVN=%v MIP=%s LVIO=%v RCNT=%d MISS=%v\n",
		r.Name, r.VAL, r.RBV, r.DMOV, r.MOVN, r.MIP, r.LVIO, r.RCNT, r.MISS)
}

func printHelp() {
	fmt.Println(`commands:
  list
  status <axis>
  move <axis> <value>
  jog <axis> fwd|rev
  stopjog <axis>
  home <axis> fwd|rev
  stop <axis>
  spmg <axis> stop|pause|move|go
  help`)
}
