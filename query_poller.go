// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package scpi

import (
	"sync"
	"sync/atomic"
	"time"
)

// Measurement is one polled query result.
type Measurement struct {
	Command  string
	Response string
	At       time.Time
}

// OnDataFunc is a callback type for pushing polled measurements
type OnDataFunc func([]Measurement)

// OnErrorFunc is a callback type for error reporting
type OnErrorFunc func(error)

// QueryPoller periodically issues a fixed set of query commands against a
// single connection and dispatches the results through callbacks. The
// connection's one-operation-at-a-time model is preserved: the poller is the
// sole caller of the connection while running, and queries within one cycle
// run sequentially.
type QueryPoller struct {
	conn     *InstrumentConnection
	commands []string
	interval time.Duration

	dataCh  chan []Measurement
	stopCh  chan struct{}
	wg      sync.WaitGroup
	onData  atomic.Value // Stores OnDataFunc callback
	onError atomic.Value // Stores OnErrorFunc callback
}

// NewQueryPoller creates a QueryPoller over conn issuing the given query
// commands every interval.
func NewQueryPoller(conn *InstrumentConnection, commands []string, interval time.Duration) *QueryPoller {
	return &QueryPoller{
		conn:     conn,
		commands: commands,
		interval: interval,
		dataCh:   make(chan []Measurement, 16),
		stopCh:   make(chan struct{}),
	}
}

// SetOnData sets the callback for measurement batches.
func (p *QueryPoller) SetOnData(fn OnDataFunc) {
	p.onData.Store(fn)
}

// SetOnError sets the callback for poll errors.
func (p *QueryPoller) SetOnError(fn OnErrorFunc) {
	p.onError.Store(fn)
}

// Start launches the polling and dispatch goroutines.
func (p *QueryPoller) Start() {
	p.wg.Add(2)
	go p.poll()
	go p.dispatch()
}

// poll runs the ticker loop, querying all commands each cycle.
func (p *QueryPoller) poll() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

// pollOnce issues every command sequentially and pushes the batch. Errors go
// to the error callback; the cycle continues with the remaining commands.
func (p *QueryPoller) pollOnce() {
	batch := make([]Measurement, 0, len(p.commands))
	for _, cmd := range p.commands {
		response, err := p.conn.Query(cmd)
		if err != nil {
			if cb := p.onError.Load(); cb != nil {
				cb.(OnErrorFunc)(err)
			}
			continue
		}
		batch = append(batch, Measurement{Command: cmd, Response: response, At: time.Now()})
	}
	if len(batch) == 0 {
		return
	}

	select {
	case p.dataCh <- batch:
	case <-p.stopCh:
	}
}

// dispatch forwards measurement batches to the OnData callback.
func (p *QueryPoller) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case batch, ok := <-p.dataCh:
			if !ok {
				return
			}
			if cb := p.onData.Load(); cb != nil {
				cb.(OnDataFunc)(batch)
			}
		}
	}
}

// Stop signals the poller to stop and waits for its goroutines to exit.
func (p *QueryPoller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}
