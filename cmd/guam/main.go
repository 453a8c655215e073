/*
 * Guam - main process.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/rcornwell/guam/config"
	"github.com/rcornwell/guam/logger"
	"github.com/rcornwell/guam/machine"
	"github.com/rcornwell/guam/shell"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "guam.json", "Configuration file")
	optEntry := getopt.StringLong("entry", 'e', "", "Configuration entry name")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	debug := false
	log := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &debug))
	slog.SetDefault(log)

	log.Info("Guam started")

	cfg, err := config.Load(*optConfig)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	name := *optEntry
	if name == "" && len(cfg.Entries) > 0 {
		name = cfg.Entries[0].Name
	}
	entry, err := cfg.Find(name)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	m, err := machine.New(entry, log)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	sh := shell.New(m)
	m.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	msg := make(chan string, 1)
	go func() {
		for {
			input, err := line.Prompt("guam> ")
			if err != nil {
				return
			}
			line.AppendHistory(input)
			msg <- input
		}
	}()

loop:
	for {
		select {
		case <-sigChan:
			fmt.Println("Got quit signal")
			break loop
		case input := <-msg:
			fields := strings.Fields(input)
			if len(fields) == 0 {
				continue
			}
			res := sh.Dispatch(fields[0], fields[1:])
			fmt.Println(res.Text)
		}
	}

	log.Info("Shutting down machine")
	m.Stop()
	log.Info("Stopped.")
}
