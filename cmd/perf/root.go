package perf

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dCRUD/cmd/util"
	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/ValentinKolb/dCRUD/lib/dispatch"
	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/ValentinKolb/dCRUD/lib/mapper/memmapper"
	"github.com/ValentinKolb/dCRUD/lib/mapper/urlmap"
	"github.com/ValentinKolb/dCRUD/lib/pool"
	"github.com/ValentinKolb/dCRUD/lib/pool/bpool"
	"github.com/ValentinKolb/dCRUD/lib/pool/sqlpool"
	libUtil "github.com/ValentinKolb/dCRUD/lib/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var log = logger.GetLogger(common.LoggerPerf)

var (
	// PerfCmd runs an in-process load test against a router of dispatchers
	PerfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Load test the dispatcher against a database",
		Long: `Runs CRUD benchmarks on url maps through a router of dispatchers that share one connection pool.
The configuration can be set via command line flags or environment variables. The format of the environment variables is DCRUD_<flag> (e.g. DCRUD_POOL_SIZE=8)`,
		PreRunE: processConfig,
		RunE:    run,
	}

	perfKeyPrefix  = "__perf"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfBackend    = "sql"
	perfSkip       = make([]string, 0)

	dispatcherConfig common.DispatcherConfig
	poolConfig       common.PoolConfig
)

func init() {
	util.SetupDispatcherFlags(PerfCmd)
	util.SetupPoolFlags(PerfCmd)

	key := "backend"
	PerfCmd.Flags().String(key, "sql", util.WrapString("Backend to test against: sql (database/sql pool, see --db-driver) or memory (in-memory mapper)"))
	key = "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. create,list)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent callers"))
	key = "keys"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	PerfCmd.Flags().Bool(key, false, util.WrapString("Print the dispatcher metrics in Prometheus format after the run"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if dispatcherConfig, err = util.GetDispatcherConfig("perf"); err != nil {
		return err
	}
	if poolConfig, err = util.GetPoolConfig(); err != nil {
		return err
	}

	perfBackend = viper.GetString("backend")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread < 1 {
		return fmt.Errorf("invalid number of keys %d", perfKeySpread)
	}
	return nil
}

// --------------------------------------------------------------------------
// Backend setup
// --------------------------------------------------------------------------

// target is the system under test
type target interface {
	dispatch.Submitter[string, urlmap.UrlMap]
	Start()
	Close() error
	processed() []float64
	writeMetrics()
}

type routerTarget[C any] struct {
	*dispatch.Router[C, string, urlmap.UrlMap]
	pool  pool.IPool[C]
	close func() error
}

func (r *routerTarget[C]) Close() error {
	err := r.Router.Close()
	if cErr := r.close(); err == nil {
		err = cErr
	}
	return err
}

func (r *routerTarget[C]) processed() []float64 {
	counts := make([]float64, 0, len(r.Dispatchers()))
	for _, d := range r.Dispatchers() {
		counts = append(counts, float64(d.Processed()))
	}
	return counts
}

func (r *routerTarget[C]) writeMetrics() {
	r.WriteMetrics(os.Stdout)

	stats := r.pool.Stats()
	s := metrics.NewSet()
	s.NewGauge("dcrud_pool_capacity", func() float64 { return float64(stats.Capacity) })
	s.NewGauge("dcrud_pool_idle", func() float64 { return float64(stats.Idle) })
	s.NewGauge("dcrud_pool_outstanding", func() float64 { return float64(stats.Outstanding) })
	s.WritePrometheus(os.Stdout)
}

func keyOf(m urlmap.UrlMap) string { return m.Key }

func newTarget(ctx context.Context) (target, error) {
	switch perfBackend {
	case "sql":
		p, err := sqlpool.Open(poolConfig)
		if err != nil {
			return nil, err
		}
		if err := urlmap.EnsureSchema(ctx, p.DB()); err != nil {
			_ = p.Close()
			return nil, err
		}
		r := dispatch.NewRouter[*sql.Conn](urlmap.NewMapper(), p, dispatcherConfig, dispatch.WithRouteKey(keyOf))
		return &routerTarget[*sql.Conn]{Router: r, pool: p, close: p.Close}, nil

	case "memory":
		type conn = *memmapper.Conn[string, urlmap.UrlMap]
		table := memmapper.NewTable[string, urlmap.UrlMap]()
		p := bpool.New(
			func(context.Context) (conn, error) { return table.Connect(), nil },
			func(c conn) error { return c.Close() },
			bpool.WithName("memory"),
			bpool.WithCapacity(poolConfig.Capacity),
			bpool.WithAcquireTimeout(poolConfig.AcquireTimeout),
		)
		r := dispatch.NewRouter[conn](memmapper.New[string, urlmap.UrlMap](keyOf), p, dispatcherConfig, dispatch.WithRouteKey(keyOf))
		return &routerTarget[conn]{Router: r, pool: p, close: p.Close}, nil

	default:
		return nil, fmt.Errorf("invalid backend %s (expected sql or memory)", perfBackend)
	}
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

func run(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	fmt.Println("Performance testing tool for dCRUD dispatchers")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Print(dispatcherConfig.String())
	if perfBackend == "sql" {
		fmt.Print(poolConfig.String())
	}
	fmt.Printf("\nBackend: %s, Threads: %d, Keys: %d\n\n", perfBackend, perfNumThreads, perfKeySpread)

	t, err := newTarget(ctx)
	if err != nil {
		return err
	}
	t.Start()
	defer func() {
		if err := t.Close(); err != nil {
			log.Errorf("closing dispatchers failed: %v", err)
		}
	}()

	client := dispatch.NewClient[string, urlmap.UrlMap](t)
	registry := gometrics.NewRegistry()

	fmt.Println("starting tests...")
	results := make(map[string]testing.BenchmarkResult)

	for _, bench := range benchmarks(client) {
		timer := gometrics.GetOrRegisterTimer(bench.name, registry)
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(bench.name) {
				return
			}

			getKey, iter := getKeys(bench.name)
			if bench.prepare != nil {
				iter(func(k string) { logErr(bench.name, bench.prepare(ctx, k)) })
			}
			b.Cleanup(func() {
				iter(func(k string) {
					if _, err := client.DeleteByID(ctx, k); err != nil && mapper.CodeOf(err) != mapper.RetCNotFound {
						logErr(bench.name, err)
					}
				})
			})

			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					start := time.Now()
					logErr(bench.name, bench.op(ctx, getKey(counter), counter))
					timer.UpdateSince(start)
					counter++
				}
			})
		})

		results[bench.name] = result
		printResult(bench.name, result, timer)
	}

	load := libUtil.NewLoad(t.processed())
	fmt.Printf("\nLoad over %d dispatchers: %.0f envelopes, balance %.2f (min %.0f, max %.0f, mean %.1f, stddev %.1f)\n",
		load.Workers, load.Total, load.Balance, load.Min, load.Max, load.Mean, load.StdDev)

	if viper.GetBool("metrics") {
		fmt.Println()
		t.writeMetrics()
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

type benchmark struct {
	name    string
	prepare func(ctx context.Context, key string) error
	op      func(ctx context.Context, key string, counter int) error
}

func benchmarks(c *dispatch.Client[string, urlmap.UrlMap]) []benchmark {
	create := func(ctx context.Context, key string) error {
		_, err := c.Create(ctx, urlmap.UrlMap{Key: key, URL: "https://example.com/" + key})
		return err
	}

	return []benchmark{
		{
			name: "create",
			op: func(ctx context.Context, key string, counter int) error {
				// every key is created once, repeated creates are expected conflicts
				err := create(ctx, key)
				if mapper.CodeOf(err) == mapper.RetCConflict {
					return nil
				}
				return err
			},
		},
		{
			name:    "read",
			prepare: create,
			op: func(ctx context.Context, key string, _ int) error {
				_, err := c.ReadByID(ctx, key)
				return err
			},
		},
		{
			name:    "update",
			prepare: create,
			op: func(ctx context.Context, key string, counter int) error {
				_, err := c.Update(ctx, urlmap.UrlMap{Key: key, URL: fmt.Sprintf("https://example.com/%s?v=%d", key, counter)})
				return err
			},
		},
		{
			name: "read-missing",
			op: func(ctx context.Context, key string, _ int) error {
				_, err := c.ReadByID(ctx, key+"-missing")
				if mapper.CodeOf(err) == mapper.RetCNotFound {
					return nil
				}
				return err
			},
		},
		{
			name:    "list",
			prepare: create,
			op: func(ctx context.Context, _ string, _ int) error {
				_, err := c.ReadList(ctx)
				return err
			},
		},
		{
			name:    "mixed",
			prepare: create,
			op: func(ctx context.Context, key string, counter int) error {
				var err error
				switch counter % 4 {
				case 0:
					_, err = c.ReadByID(ctx, key)
				case 1:
					_, err = c.Update(ctx, urlmap.UrlMap{Key: key, URL: "https://example.com/mixed"})
				case 2:
					_, err = c.DeleteByID(ctx, key)
				case 3:
					err = create(ctx, key)
				}
				// other callers work on the same keys
				switch mapper.CodeOf(err) {
				case mapper.RetCNotFound, mapper.RetCConflict:
					return nil
				}
				return err
			},
		},
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func logErr(test string, err error) {
	if err != nil {
		log.Warningf("(%s) - %v", test, err)
	}
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, timer gometrics.Timer) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	p := timer.Snapshot().Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(p[0]), time.Duration(p[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, registry gometrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P99", "Skipped",
		"Backend", "Driver", "PoolSize", "Dispatchers", "QueueSize", "AcquireTimeout", "RateLimit",
		"Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"
		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		var p50, p99 time.Duration
		if timer, ok := registry.Get(test).(gometrics.Timer); ok {
			p := timer.Snapshot().Percentiles([]float64{0.5, 0.99})
			p50, p99 = time.Duration(p[0]), time.Duration(p[1])
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			p50.String(),
			p99.String(),
			skipped,
			perfBackend,
			poolConfig.Driver,
			strconv.Itoa(poolConfig.Capacity),
			strconv.Itoa(dispatcherConfig.Dispatchers),
			strconv.Itoa(dispatcherConfig.QueueSize),
			dispatcherConfig.AcquireTimeout.String(),
			strconv.FormatFloat(dispatcherConfig.RateLimit, 'f', 1, 64),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
