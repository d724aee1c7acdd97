package client

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// CSVSource replays a recorded (wait_ms, processing_ms) schedule against a
// RequestReceiver. The schedule is not looped: once exhausted, the source
// stops issuing requests.
type CSVSource struct {
	receiver RequestReceiver
	path     string
	log      *zap.SugaredLogger

	simStart time.Time
	stop     chan struct{}
	done     chan struct{}
}

// NewCSVSource creates a CSVSource reading rows from path.
func NewCSVSource(receiver RequestReceiver, path string, log *zap.SugaredLogger) *CSVSource {
	return &CSVSource{
		receiver: receiver,
		path:     path,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start loads and replays the schedule in a new goroutine, anchored at simStart.
func (s *CSVSource) Start(simStart time.Time) {
	s.simStart = simStart
	go s.run()
}

// Stop signals termination and waits for replay to end.
func (s *CSVSource) Stop() {
	close(s.stop)
	<-s.done
}

type scheduledRequest struct {
	waitMs       float64
	processingMs float64
}

func (s *CSVSource) run() {
	defer close(s.done)

	rows, err := s.loadRows()
	if err != nil {
		if s.log != nil {
			s.log.Warnw("csv workload source: failed to open file, no requests will be issued", "path", s.path, "err", err)
		}
		return
	}

	for _, row := range rows {
		select {
		case <-s.stop:
			return
		case <-time.After(time.Duration(row.waitMs * float64(time.Millisecond))):
		}

		arrival := time.Since(s.simStart).Seconds()
		s.receiver.ReceiveRequest(arrival, row.processingMs/1000)
	}
}

func (s *CSVSource) loadRows() ([]scheduledRequest, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows []scheduledRequest
	lineNo := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			if s.log != nil {
				s.log.Warnw("csv workload source: skipping malformed row", "line", lineNo, "err", err)
			}
			continue
		}
		if len(record) < 2 {
			if s.log != nil {
				s.log.Warnw("csv workload source: skipping row with too few fields", "line", lineNo)
			}
			continue
		}

		waitMs, err1 := strconv.ParseFloat(record[0], 64)
		processingMs, err2 := strconv.ParseFloat(record[1], 64)
		if err1 != nil || err2 != nil || waitMs < 0 || processingMs < 0 {
			if s.log != nil {
				s.log.Warnw("csv workload source: skipping non-numeric or negative row", "line", lineNo, "row", record)
			}
			continue
		}

		rows = append(rows, scheduledRequest{waitMs: waitMs, processingMs: processingMs})
	}
	return rows, nil
}
