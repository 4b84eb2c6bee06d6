package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dbc/pkg/core"
	"dbc/pkg/monitor"
	"dbc/pkg/protocol"
	"dbc/pkg/storage"

	json "github.com/goccy/go-json"
)

func main() {
	httpAddr := flag.String("http", "http://localhost:8080", "HTTP API base URL")
	tcpAddr := flag.String("tcp", "localhost:9090", "TCP server address")
	nReq := flag.Int("n", 5000, "Number of requests per run")
	remote := flag.Bool("remote", false, "Also benchmark a running server over HTTP and TCP")
	flag.Parse()

	runLocalBenchmark(*nReq)
	if !*remote {
		return
	}

	fmt.Printf("dbc Protocol Benchmark (N=%d)\n", *nReq)
	fmt.Printf("  HTTP=%s  TCP=%s\n", *httpAddr, *tcpAddr)
	fmt.Println("---------------------------------------------------")

	fmt.Println(">> Starting HTTP Benchmark (JSON over HTTP 1.1)...")
	httpDuration := runHTTPBenchmark(*httpAddr, *nReq)
	fmt.Printf("   HTTP Time: %v | QPS: %.0f\n\n", httpDuration, float64(*nReq)/httpDuration.Seconds())

	fmt.Println(">> Starting TCP Benchmark (Binary Protocol)...")
	tcpPut, tcpGet := runTCPBenchmark(*tcpAddr, *nReq)
	fmt.Printf("   TCP  Put: %v | QPS: %.0f\n", tcpPut, float64(*nReq)/tcpPut.Seconds())
	fmt.Printf("   TCP  Get: %v | QPS: %.0f\n", tcpGet, float64(*nReq)/tcpGet.Seconds())

	fmt.Println(">> Starting Keys scan...")
	scan, n := runScan(*tcpAddr)
	fmt.Printf("   Keys: %d in %v\n", n, scan)
	fmt.Println("---------------------------------------------------")
}

// runLocalBenchmark 直接在库层面测量 Map 与 List 的读写和遍历耗时。
func runLocalBenchmark(n int) {
	dir, err := os.MkdirTemp("", "dbc-bench")
	if err != nil {
		log.Fatalf("Temp dir failed: %v", err)
	}
	defer os.RemoveAll(dir)

	store, err := storage.Open(filepath.Join(dir, "bench.db"))
	if err != nil {
		log.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	opts := core.DefaultOptions()
	opts.Logger = monitor.NopLogger()
	opts.CacheSize = true

	m, err := core.NewMap[int, string](store, opts)
	if err != nil {
		log.Fatalf("NewMap failed: %v", err)
	}
	defer m.Close()

	fmt.Printf("dbc Local Benchmark (N=%d)\n", n)
	fmt.Println("---------------------------------------------------")

	report := func(name string, d time.Duration, ops int) {
		fmt.Printf("   %-10s %v | OPS: %.0f\n", name, d, float64(ops)/d.Seconds())
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		if _, _, err := m.Put(i, "bench_data"); err != nil {
			log.Fatalf("Put failed: %v", err)
		}
	}
	report("Map.Put", time.Since(start), n)

	start = time.Now()
	for i := 0; i < n; i++ {
		if _, _, err := m.Get(i); err != nil {
			log.Fatalf("Get failed: %v", err)
		}
	}
	report("Map.Get", time.Since(start), n)

	start = time.Now()
	for i := 0; i < n; i++ {
		if _, err := m.Size(); err != nil {
			log.Fatalf("Size failed: %v", err)
		}
	}
	report("Map.Size", time.Since(start), n)

	start = time.Now()
	it, err := m.Entries()
	if err != nil {
		log.Fatalf("Entries failed: %v", err)
	}
	entries, err := it.Collect()
	if err != nil {
		log.Fatalf("Iterate failed: %v", err)
	}
	report("Map.Iter", time.Since(start), len(entries))

	l, err := core.NewList[string](store, opts)
	if err != nil {
		log.Fatalf("NewList failed: %v", err)
	}
	defer l.Close()

	// 头部插入每次都要整体移位，数量取小一些。
	shifts := n / 10
	if err := l.Add("bench_data"); err != nil {
		log.Fatalf("Add failed: %v", err)
	}
	start = time.Now()
	for i := 0; i < shifts; i++ {
		if err := l.Insert(0, "bench_data"); err != nil {
			log.Fatalf("Insert failed: %v", err)
		}
	}
	report("List.Ins0", time.Since(start), shifts)

	stats := m.Stats().Snapshot()
	fmt.Printf("   size cache hits: %v / %v\n\n", stats["size_hits"], stats["size_queries"])
}

func runHTTPBenchmark(httpAddr string, n int) time.Duration {
	start := time.Now()
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 100,
		},
	}

	for i := 0; i < n; i++ {
		data := map[string]interface{}{
			"key":   "h" + strconv.Itoa(i),
			"value": "bench_data",
		}
		jsonData, _ := json.Marshal(data)

		resp, err := client.Post(httpAddr+"/api/put", "application/json", bytes.NewReader(jsonData))
		if err != nil {
			log.Fatalf("HTTP Req failed: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return time.Since(start)
}

func runTCPBenchmark(addr string, n int) (time.Duration, time.Duration) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("TCP Connect failed: %v", err)
	}
	defer conn.Close()

	val := []byte("bench_data")
	roundTrip := func(op byte, key, value []byte) {
		if err := protocol.Encode(conn, op, key, value); err != nil {
			log.Fatalf("TCP Write failed: %v", err)
		}
		if _, err := protocol.Decode(conn); err != nil {
			log.Fatalf("TCP Read failed: %v", err)
		}
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		roundTrip(protocol.OpPut, []byte("t"+strconv.Itoa(i)), val)
	}
	put := time.Since(start)

	start = time.Now()
	for i := 0; i < n; i++ {
		roundTrip(protocol.OpGet, []byte("t"+strconv.Itoa(i)), nil)
	}
	return put, time.Since(start)
}

func runScan(addr string) (time.Duration, int) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("TCP Connect failed: %v", err)
	}
	defer conn.Close()

	start := time.Now()
	if err := protocol.Encode(conn, protocol.OpKeys, nil, nil); err != nil {
		log.Fatalf("TCP Write failed: %v", err)
	}
	resp, err := protocol.Decode(conn)
	if err != nil {
		log.Fatalf("TCP Read failed: %v", err)
	}
	keys, err := protocol.DecodeStrings(resp.Value)
	if err != nil {
		log.Fatalf("Decode keys failed: %v", err)
	}
	return time.Since(start), len(keys)
}
