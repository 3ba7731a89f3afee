/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: Initialize go logging, watch log file size and rotate, delete old logs

*/

package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ricochet2200/go-disk-usage/du"
	"golang.org/x/sys/unix"
)

const (
	debugLogFile = "payload.log"
	maxLogSize   = 10 * 1024 * 1024 // rotate above 10mb
	minFreeBytes = 50 * 1024 * 1024 // leave 50mb free
	maxLogNum    = 9
)

var (
	logDirf       string // Set from settings.
	logFileHandle *os.File
	logMutex      sync.Mutex
)

func getPayloadLogFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	payloadLogs := make([]string, 0)
	if err != nil {
		return payloadLogs
	}

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), debugLogFile+".") {
			payloadLogs = append(payloadLogs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Slice(payloadLogs, func(i, j int) bool {
		return logNumber(payloadLogs[i]) < logNumber(payloadLogs[j])
	})
	return payloadLogs
}

func logNumber(path string) int {
	n, err := strconv.Atoi(path[strings.LastIndex(path, ".")+1:])
	if err != nil {
		return -1
	}
	return n
}

// rotateLogs shifts payload.log.N to N+1, drops the one past maxLogNum and
// moves the current log to payload.log.1.
func rotateLogs(dir string) {
	payloadLogs := getPayloadLogFiles(dir)

	for i := len(payloadLogs) - 1; i >= 0; i-- {
		logNum := logNumber(payloadLogs[i])
		if logNum < 0 {
			continue
		}
		if logNum >= maxLogNum {
			os.Remove(payloadLogs[i])
		} else {
			os.Rename(payloadLogs[i], filepath.Join(dir, debugLogFile+"."+strconv.Itoa(logNum+1)))
		}
	}

	current := filepath.Join(dir, debugLogFile)
	os.Rename(current, current+".1")
}

func deleteOldestLog(dir string) int64 {
	logs := getPayloadLogFiles(dir)
	if len(logs) == 0 {
		return 0
	}
	oldest := logs[len(logs)-1]
	stat, err := os.Stat(oldest)
	if err != nil {
		return 0
	}
	if err = os.Remove(oldest); err != nil {
		return 0
	}
	return stat.Size()
}

func logFileWatcher() {
	for {
		logMutex.Lock()
		dir := logDirf
		logMutex.Unlock()

		logSize, err := os.Stat(filepath.Join(dir, debugLogFile))
		if err == nil && logSize.Size() > maxLogSize {
			rotateLogs(dir)
			openLogFile(dir)
		}

		usage := du.NewDiskUsage(dir)
		freeBytes := int64(usage.Free())
		for freeBytes < minFreeBytes {
			deleted := deleteOldestLog(dir)
			if deleted == 0 {
				break
			}
			freeBytes += deleted
		}

		time.Sleep(30 * time.Second)
	}
}

func openLogFile(dir string) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Failed to create log dir '%s': %s\n", dir, err.Error())
		return
	}
	oldFp := logFileHandle
	logDirf = dir
	debugLogf := filepath.Join(dir, debugLogFile)
	fp, err := os.OpenFile(debugLogf, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open '%s': %s\n", debugLogf, err.Error())
		return
	}
	logFileHandle = fp
	log.SetOutput(io.MultiWriter(fp, os.Stdout))

	// Make sure crash dumps are written to the log as well
	unix.Dup3(int(fp.Fd()), 2, 0)

	if oldFp != nil {
		oldFp.Close()
	}
}

func initLogging(dir string) {
	openLogFile(dir)
	go logFileWatcher()
}

func logDbg(msg string, args ...any) {
	if currentSettings().DEBUG {
		log.Printf(msg, args...)
	}
}
