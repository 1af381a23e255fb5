// Package telemetry mirrors sketch reports to an MQTT broker.
//
// Reports are CBOR encoded and published to <prefix><node>/stats.
// A retained JSON document on <prefix><node>/meta describes the
// program and is cleared by the last will when the node goes away.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/glog"

	"github.com/robotalks/sketch.go/pkg/counter"
	fx "github.com/robotalks/sketch.go/pkg/framework"
)

// Meta describes the publishing program.
type Meta struct {
	Program     string            `json:"program"`
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = (cbor.EncOptions{Time: cbor.TimeRFC3339Nano}).EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// EncodeReport encodes a report as CBOR.
func EncodeReport(r counter.Report) ([]byte, error) {
	return encMode.Marshal(r)
}

// DecodeReport decodes a CBOR report.
func DecodeReport(data []byte) (counter.Report, error) {
	var r counter.Report
	err := decMode.Unmarshal(data, &r)
	return r, err
}

// DefaultRetryInterval is the delay between connection attempts.
const DefaultRetryInterval = 5 * time.Second

// Publisher publishes reports of a node.
type Publisher struct {
	Queue  *Queue
	NodeID string
	// RetryInterval separates failed connection attempts.
	RetryInterval time.Duration

	metaJSON []byte
	attempts uint64
}

// NewPublisher creates a Publisher connecting to brokerURL.
func NewPublisher(brokerURL, nodeID string, meta Meta) (*Publisher, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL: %v", err)
	}
	opts.SetBinaryWill(topicPrefix+nodeID+"/meta", nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("sketch:" + nodeID)
	}
	p := &Publisher{
		Queue:         NewQueue(opts, topicPrefix),
		NodeID:        nodeID,
		RetryInterval: DefaultRetryInterval,
		metaJSON:      metaJSON,
	}
	p.Queue.OnConnect = func(q *Queue) {
		q.PubWith(p.NodeID+"/meta", p.metaJSON, 1, true)
	}
	return p, nil
}

// Name implements Named.
func (p *Publisher) Name() string { return "telemetry" }

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(l *fx.Loop) {
	l.AddRunnable(p)
}

// Run implements Runnable. The first connection is retried until it
// succeeds; the client reconnects by itself afterwards.
func (p *Publisher) Run(ctx context.Context) error {
	p.connect(ctx)
	<-ctx.Done()
	if p.Queue.Client.IsConnected() {
		p.Queue.PubWith(p.NodeID+"/meta", nil, 1, true).WaitTimeout(time.Second)
	}
	return p.Queue.Close()
}

func (p *Publisher) connect(ctx context.Context) {
	for {
		atomic.AddUint64(&p.attempts, 1)
		token := p.Queue.Connect()
		done := make(chan struct{})
		go func() {
			token.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			return
		case <-done:
		}
		err := token.Error()
		if err == nil {
			return
		}
		glog.Warningf("telemetry connect: %v, retry in %s", err, p.RetryInterval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.RetryInterval):
		}
	}
}

// Attempts returns the number of connection attempts so far.
func (p *Publisher) Attempts() uint64 {
	return atomic.LoadUint64(&p.attempts)
}

// PublishReport implements counter.Sink. It never waits for the broker.
func (p *Publisher) PublishReport(r counter.Report) error {
	data, err := EncodeReport(r)
	if err != nil {
		return err
	}
	if !p.Queue.Client.IsConnected() {
		glog.V(2).Info("telemetry not connected, report dropped")
		return nil
	}
	p.Queue.Pub(p.NodeID+"/stats", data)
	return nil
}
