package app

import (
	"sync"
	"time"

	"lcdsniff/pkg/i2c"
	"lcdsniff/pkg/pipeline"
	"lcdsniff/pkg/port"

	"github.com/womat/debug"
)

// decode feeds the samples to the pipeline until the channel is closed.
// It is the only goroutine using app.pipeline.
func (app *App) decode(samples <-chan i2c.Sample) {
	defer close(app.done)

	for s := range samples {
		app.pipeline.FeedSample(s)

		app.stats.Lock()
		app.stats.data = app.pipeline.Stats()
		app.stats.Unlock()
	}

	debug.InfoLog.Print("sample stream closed, decoding stopped")
}

// Stats returns the decoding counters.
func (app *App) Stats() pipeline.Stats {
	app.stats.RLock()
	defer app.stats.RUnlock()
	return app.stats.data
}

// displayMessage is the mqtt payload of the display content.
type displayMessage struct {
	Time  time.Time `json:"time"`
	Lines []string  `json:"lines"`
}

// sink receives the pipeline outputs: the records update the screen, are
// kept for the web service and published to mqtt.
type sink struct {
	app *App
}

func (s *sink) Annotate(a port.Annotation) {
	debug.TraceLog.Print(a)
}

func (s *sink) WriteByte(byte) error {
	return nil
}

func (s *sink) Record(r pipeline.Record) {
	app := s.app
	app.events.Add(r)
	app.mqtt.PublishJSON(app.config.MQTT.EventTopic, false, r)

	switch r.Kind {
	case pipeline.RecordCommand, pipeline.RecordData:
		if !app.screen.Apply(r.Byte()) {
			return
		}
		debug.DebugLog.Printf("display: %q", app.screen.Lines())
		app.mqtt.PublishJSON(app.config.MQTT.Topic, true, displayMessage{Time: time.Now(), Lines: app.screen.Lines()})
	case pipeline.RecordWarning:
		debug.ErrorLog.Printf("decoding %s", r)
	}
}

// eventLog is a ring of the last records.
type eventLog struct {
	sync.RWMutex
	records []pipeline.Record
	next    int
	full    bool
}

func newEventLog(size int) *eventLog {
	if size <= 0 {
		size = 1
	}
	return &eventLog{records: make([]pipeline.Record, size)}
}

// Add stores r, overwriting the oldest record if the ring is full.
func (l *eventLog) Add(r pipeline.Record) {
	l.Lock()
	defer l.Unlock()

	l.records[l.next] = r
	l.next = (l.next + 1) % len(l.records)
	if l.next == 0 {
		l.full = true
	}
}

// List returns the records, oldest first.
func (l *eventLog) List() []pipeline.Record {
	l.RLock()
	defer l.RUnlock()

	if !l.full {
		return append([]pipeline.Record(nil), l.records[:l.next]...)
	}
	out := make([]pipeline.Record, 0, len(l.records))
	out = append(out, l.records[l.next:]...)
	return append(out, l.records[:l.next]...)
}
