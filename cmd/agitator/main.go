// Package main - agitator
// Load generator for stress testing: a crowd of websocket clients spamming
// drag, drop, queue and purchase actions at one Backlog Breakdown server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/engine"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/network"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	OutPath        string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Rejected         int64 // Results with ok=false, including rate limiting
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

// Weighted so the crowd mostly plays and only occasionally buys.
var actionTypes = []string{
	network.ActionDrag,
	network.ActionDropStack,
	network.ActionDropStack,
	network.ActionEnqueue,
	network.ActionEnqueue,
	network.ActionEnqueue,
	network.ActionDropQueue,
	network.ActionCancelDrag,
	network.ActionRemove,
	network.ActionPurchase,
	network.ActionDismissDialog,
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	out := flag.String("out", "stress_test_results.json", "Where to write the JSON results")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		OutPath:        *out,
	}

	fmt.Println("=========================================")
	fmt.Println("🔥 AGITATOR - Backlog Breakdown Stress Test")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️ Interrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\n🚀 Starting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("✅ All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.MessagesSent)
				recv := atomic.LoadInt64(&stats.MessagesReceived)
				rej := atomic.LoadInt64(&stats.Rejected)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("📊 Progress: Sent=%d Recv=%d Rejected=%d Errors=%d\n", sent, recv, rej, errs)
			}
		}
	}()

	wg.Wait()
	return stats
}

// view is what one bot has learned about the world from snapshot pushes.
type view struct {
	mu     sync.Mutex
	state  session.State
	items  []item.ID
	stacks []int
}

func (v *view) update(snap engine.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = snap.State
	v.items = v.items[:0]
	v.stacks = v.stacks[:0]
	for _, st := range snap.Stacks {
		v.stacks = append(v.stacks, st.ID)
		for _, it := range st.Items {
			v.items = append(v.items, it.ID)
		}
	}
	for _, it := range snap.Queue {
		v.items = append(v.items, it.ID)
	}
	for _, it := range snap.Dragging {
		v.items = append(v.items, it.ID)
	}
}

func (v *view) pick() (session.State, item.ID, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var id item.ID
	if len(v.items) > 0 {
		id = v.items[rand.IntN(len(v.items))]
	}
	stack := 0
	if len(v.stacks) > 0 {
		stack = v.stacks[rand.IntN(len(v.stacks))]
	}
	return v.state, id, stack
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	world := &view{}

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			handleMessage(data, world, stats)
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			action := generateRandomAction(clientID, world)
			start := time.Now()

			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func handleMessage(data []byte, world *view, stats *Stats) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	switch env.Type {
	case network.MsgTypeSnapshot:
		var snap engine.Snapshot
		if err := json.Unmarshal(env.Payload, &snap); err == nil {
			world.update(snap)
		}
	case network.MsgTypeResult:
		var res network.ActionResult
		if err := json.Unmarshal(env.Payload, &res); err == nil && !res.OK {
			atomic.AddInt64(&stats.Rejected, 1)
		}
	}
}

// generateRandomAction keeps the session alive: client 0 starts or restarts
// it, everybody else plays with whatever items the last snapshot showed.
func generateRandomAction(clientID int, world *view) network.PlayerAction {
	state, id, stack := world.pick()

	if clientID == 0 {
		switch state {
		case "", session.StateStartScreen:
			return network.PlayerAction{Type: network.ActionStart}
		case session.StateFailed:
			return network.PlayerAction{Type: network.ActionRestart}
		}
	}

	return network.PlayerAction{
		Type:    actionTypes[rand.IntN(len(actionTypes))],
		ItemID:  id,
		StackID: stack,
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("📊 STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	rej := atomic.LoadInt64(&stats.Rejected)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Rejected Actions:  %d\n", rej)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	latencies := stats.Latencies
	stats.mu.Unlock()

	if len(latencies) > 0 {
		var total time.Duration
		lo, hi := latencies[0], latencies[0]
		for _, l := range latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}
		avg := total / time.Duration(len(latencies))

		fmt.Printf("\nLatency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  Max: %v\n", hi)
	}

	// Verdict
	fmt.Println("\n-----------------------------------------")
	expected := float64(config.NumClients) * config.TestDuration.Seconds() / config.ActionInterval.Seconds() * 0.5
	if errs == 0 && float64(sent) >= expected {
		fmt.Println("✅ TEST PASSED: System handled the load")
	} else if float64(errs)/float64(sent+1) < 0.05 {
		fmt.Println("⚠️ TEST WARNING: Some errors detected")
	} else {
		fmt.Println("❌ TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"rejected_actions":   rej,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.OutPath, jsonData, 0644); err != nil {
		log.Printf("Failed to save results: %v", err)
		return
	}
	fmt.Printf("\n📁 Results saved to %s\n", config.OutPath)
}
