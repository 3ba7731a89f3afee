/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	poller.go: Periodically refresh the enabled IMU channels, log them and
	 reopen the device when it goes away.

*/

package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/ricochet2200/go-disk-usage/du"
	"golang.org/x/exp/slices"

	"github.com/yearling2/payload/payload"
	"github.com/yearling2/payload/sensors"
)

// Polls in a row in which every enabled channel faulted before the device is
// closed and reopened.
const numRetries = 3

type poller struct {
	payload  *payload.Payload
	dataLog  *dataLog // nil when the datalog is off
	started  time.Time
	safeMode func(reason string)

	// badPolls counts polls in a row where the open device answered no read.
	// failnum counts reopen attempts since the last good poll.
	badPolls int
	failnum  int
}

func newPoller(p *payload.Payload, dl *dataLog, safeMode func(string)) *poller {
	return &poller{
		payload:  p,
		dataLog:  dl,
		started:  time.Now(),
		safeMode: safeMode,
	}
}

func pollInterval() time.Duration {
	return time.Duration(currentSettings().PollIntervalMS) * time.Millisecond
}

func (pl *poller) run(stop <-chan struct{}) {
	interval := pollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			pl.poll(now)
			// The interval may have been changed by SIGUSR1.
			if next := pollInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (pl *poller) poll(now time.Time) {
	s := currentSettings()
	if !pl.payload.Connected() {
		pl.reopen(s, "IMU not connected")
	}

	for _, c := range distinctChannels(pl.payload.Channels()) {
		pl.payload.Read(c)
	}
	pl.checkHealth(s)
	snap := pl.payload.Snapshot()
	if pl.dataLog != nil && len(snap) > 0 {
		if err := pl.dataLog.Record(now, snap); err != nil {
			log.Printf("Payload Error: %s\n", err.Error())
		}
	}

	connected := pl.payload.Connected()
	totalPolls.Inc()
	if connected {
		deviceConnected.Set(1)
	} else {
		deviceConnected.Set(0)
	}

	uptime := now.Sub(pl.started)
	free := humanize.Bytes(du.NewDiskUsage(s.LogDir).Free())

	statusMutex.Lock()
	globalStatus.Device = s.Device
	globalStatus.Connected = connected
	globalStatus.Channels = channelNames(pl.payload.Channels())
	globalStatus.Polls++
	globalStatus.LastPollTime = now
	globalStatus.Uptime = int64(uptime / time.Second)
	globalStatus.UptimeHuman = strings.TrimSpace(humanize.RelTime(pl.started, now, "", ""))
	globalStatus.LogDirFree = free
	globalStatus.ReopenFailures = pl.failnum
	globalStatus.DataLogConnected = pl.dataLog != nil
	statusMutex.Unlock()

	logDbg("Payload Info: poll %d, %d channels cached\n", totalPollsValue(), len(snap))
}

// checkHealth clears the failure counters after a good poll and reopens a
// device that is open but has stopped answering.
func (pl *poller) checkHealth(s settings) {
	if !pl.payload.Connected() {
		return
	}
	if !pl.payload.Failing() {
		if pl.failnum > 0 {
			log.Printf("Payload Info: IMU recovered after %d reopen attempts\n", pl.failnum)
		}
		pl.badPolls = 0
		pl.failnum = 0
		return
	}

	pl.badPolls++
	if pl.badPolls > numRetries {
		pl.badPolls = 0
		pl.reopen(s, fmt.Sprintf("every IMU read failed for %d polls", numRetries+1))
	}
}

// reopen cycles the device through a no-op append, which closes, reopens and
// re-enables the current channel list. The attempt only counts as a success
// once a later poll reads something.
func (pl *poller) reopen(s settings, why string) {
	log.Printf("Payload Error: %s, reopening\n", why)
	if err := pl.payload.UpdateConfiguration(nil, payload.Append); err != nil {
		log.Printf("Payload Error: reopen: %s\n", err.Error())
	}

	pl.failnum++
	if !pl.payload.Connected() {
		totalReopenFailures.Inc()
	}
	if s.SafeModeAfterFailures > 0 && pl.failnum >= s.SafeModeAfterFailures {
		pl.safeMode(fmt.Sprintf("IMU could not be recovered after %d attempts", pl.failnum))
	}
}

func totalPollsValue() uint64 {
	statusMutex.Lock()
	defer statusMutex.Unlock()
	return globalStatus.Polls
}

// distinctChannels drops duplicates; reading a channel twice in one poll
// only costs bus time.
func distinctChannels(channels []sensors.Channel) []sensors.Channel {
	out := slices.Clone(channels)
	slices.Sort(out)
	return slices.Compact(out)
}

func channelNames(channels []sensors.Channel) []string {
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.String()
	}
	return names
}
