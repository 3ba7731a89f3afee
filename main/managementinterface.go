/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	managementinterface.go: HTTP and websocket interface for ground tools.
	 Serves cached telemetry, status, settings and channel changes.

*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"github.com/yearling2/payload/payload"
)

var myPayload *payload.Payload

type TelemetryMessage struct {
	Time     time.Time
	Channels []string
	Values   map[string][]float64
}

type ChannelsMessage struct {
	Channels []string `json:"channels"`
	Mode     string   `json:"mode"`
}

// currentTelemetry reports the cache only; it never touches the device.
func currentTelemetry(now time.Time) TelemetryMessage {
	msg := TelemetryMessage{
		Time:     now,
		Channels: channelNames(myPayload.Channels()),
		Values:   make(map[string][]float64),
	}
	for c, v := range myPayload.Snapshot() {
		msg.Values[c.String()] = v
	}
	return msg
}

func telemetrySender(conn *websocket.Conn) {
	timer := time.NewTicker(1 * time.Second)
	defer timer.Stop()
	for {
		<-timer.C

		update, _ := json.Marshal(currentTelemetry(time.Now()))
		if _, err := conn.Write(update); err != nil {
			logDbg("Payload Info: telemetry client disconnected: %s\n", err.Error())
			break
		}
	}
}

// AJAX call - /getTelemetry. Responds with the cached value of every channel read so far.
func handleTelemetryRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	telemetryJSON, _ := json.Marshal(currentTelemetry(time.Now()))
	fmt.Fprintf(w, "%s\n", telemetryJSON)
}

// AJAX call - /getStatus.
func handleStatusRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	statusMutex.Lock()
	statusJSON, _ := json.Marshal(&globalStatus)
	statusMutex.Unlock()
	fmt.Fprintf(w, "%s\n", statusJSON)
}

// AJAX call - /getSettings. Responds with all payload.conf data.
func handleSettingsGetRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	s := currentSettings()
	settingsJSON, _ := json.Marshal(&s)
	fmt.Fprintf(w, "%s\n", settingsJSON)
}

// AJAX call - /setChannels. Replaces or extends the enabled channel list,
// reinitializes the IMU and saves the new list to payload.conf.
func handleSetChannelsRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var msg ChannelsMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	mode, err := payload.ParseMode(msg.Mode)
	if err == nil {
		err = myPayload.UpdateConfiguration(msg.Channels, mode)
	}
	if errors.Is(err, payload.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	names := channelNames(myPayload.Channels())
	log.Printf("Payload Info: channels set (%s) to %v\n", mode, names)
	settingsMutex.Lock()
	globalSettings.Channels = names
	settingsMutex.Unlock()
	saveSettings()

	channelsJSON, _ := json.Marshal(&ChannelsMessage{Channels: names, Mode: mode.String()})
	fmt.Fprintf(w, "%s\n", channelsJSON)
}

func newManagementMux(logDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/logs/", http.StripPrefix("/logs/", http.FileServer(http.Dir(logDir))))
	mux.HandleFunc("/telemetry",
		func(w http.ResponseWriter, req *http.Request) {
			s := websocket.Server{
				Handler: websocket.Handler(telemetrySender)}
			s.ServeHTTP(w, req)
		})

	mux.HandleFunc("/getTelemetry", handleTelemetryRequest)
	mux.HandleFunc("/getStatus", handleStatusRequest)
	mux.HandleFunc("/getSettings", handleSettingsGetRequest)
	mux.HandleFunc("/setChannels", handleSetChannelsRequest)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func managementInterface(addr, logDir string) {
	err := http.ListenAndServe(addr, newManagementMux(logDir))

	if err != nil {
		log.Printf("managementInterface ListenAndServe: %s\n", err.Error())
	}
}
