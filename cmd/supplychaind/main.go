// Command supplychaind wires the procurement pipeline into a small
// HTTP service: submit a requisition chain run over a dictionary of
// input fields via POST /orders. The order's terminal state is not
// exposed over HTTP.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/throughline-systems/supplychain/config"
	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
	"github.com/throughline-systems/supplychain/handler/virustotal"
	"github.com/throughline-systems/supplychain/manifest"
	"github.com/throughline-systems/supplychain/procurement"
	"github.com/throughline-systems/supplychain/quartermaster"
	"github.com/throughline-systems/supplychain/resilience"
	"github.com/throughline-systems/supplychain/telemetry"
)

func main() {
	cfg, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger := cfg.Logger()

	tracerProvider := telemetry.NewTracerProvider(cfg.ServiceName)
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("parsing redis url: %v", err)
	}
	opts.PoolSize = cfg.Redis.PoolSize
	redisClient := redis.NewClient(opts)

	fixtureDir := os.Getenv("SUPPLYCHAIN_FIXTURE_DIR")
	if fixtureDir == "" {
		fixtureDir = "fixtures/chains"
	}
	chains, loadErrs := config.LoadChainsFromDir(fixtureDir)
	for _, e := range loadErrs {
		logger.Warn("skipping malformed chain fixture", map[string]interface{}{"error": e.Error()})
	}

	quartermasterDir := os.Getenv("SUPPLYCHAIN_QUARTERMASTER_FIXTURE")
	var quartermasters []*quartermaster.Quartermaster
	if quartermasterDir != "" {
		quartermasters, err = config.LoadQuartermasterSetFile(quartermasterDir)
		if err != nil {
			log.Fatalf("loading quartermasters: %v", err)
		}
	}

	resolver := quartermaster.NewResolver(
		&quartermaster.StaticSource{All: quartermasters},
		quartermaster.NewRedisVisaCounter(redisClient, cfg.Redis.Namespace),
		logger,
	)

	metrics := resilience.NoopMetrics
	registry := handler.NewRegistry(logger, metrics)

	httpClient := telemetry.NewTracedHTTPClientWithTimeout(nil, cfg.HTTP.Timeout)
	vtClient := virustotal.NewClient(httpClient)
	registry.Register("virustotal", "domain_report", virustotal.DomainReportHandler{Client: vtClient})
	registry.Register("virustotal", "ip_report", virustotal.IPReportHandler{Client: vtClient})
	registry.Register("virustotal", "url_scan", virustotal.URLScanHandler{Client: vtClient})
	registry.Register("virustotal", "url_report", virustotal.URLReportHandler{Client: vtClient})
	registry.Register("virustotal", "file_scan", virustotal.FileScanHandler{Client: vtClient})
	registry.Register("virustotal", "file_report", virustotal.FileReportHandler{Client: vtClient})
	registry.Register("virustotal", "file_rescan", virustotal.FileRescanHandler{Client: vtClient})

	manifests := manifest.NewRedisStore(redisClient, cfg.Redis.Namespace)
	orders := procurement.NewRedisOrderStore(redisClient, cfg.Redis.Namespace)
	downstream := procurement.NewRedisDownstreamProcessor(redisClient, cfg.Redis.Namespace)

	procurements := make([]*procurement.Procurement, 0, len(chains))
	for id, chain := range chains {
		procurements = append(procurements, &procurement.Procurement{
			ID:         id,
			Name:       chain.Name,
			Chain:      chain,
			Downstream: downstream,
		})
	}
	source := procurement.NewStaticProcurementSource(procurements...)

	runtime := &procurement.Runtime{
		Orders:       orders,
		Manifests:    manifests,
		Resolver:     resolver,
		Handlers:     registry,
		Procurements: source,
		Logger:       logger,
	}
	executor := procurement.NewQueueExecutor(redisClient, cfg.Executor.QueueKey, runtime)

	for i := 0; i < cfg.Executor.MaxConcurrency; i++ {
		go func() {
			ctx := context.Background()
			if err := executor.Run(ctx, 5*time.Second); err != nil {
				logger.Error("executor worker stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", submitHandler(source, orders, executor, logger))

	addr := ":8080"
	logger.Info("starting supplychaind", map[string]interface{}{"addr": addr})
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

type submitRequest struct {
	ProcurementID string    `json:"procurement_id"`
	UserID        string    `json:"user_id"`
	Input         core.Dict `json:"input"`
}

type submitResponse struct {
	OrderID string `json:"order_id"`
}

func submitHandler(source *procurement.StaticProcurementSource, orders procurement.OrderStore, exec procurement.Executor, logger core.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		proc, err := source.Procurement(r.Context(), req.ProcurementID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		orderID, err := proc.Submit(r.Context(), orders, exec, req.UserID, req.Input)
		if err != nil {
			logger.Warn("submit rejected", map[string]interface{}{"error": err.Error()})
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(submitResponse{OrderID: orderID})
	}
}
