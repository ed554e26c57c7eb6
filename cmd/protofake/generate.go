package main

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.gazette.dev/protofake/generator"
	mbp "go.gazette.dev/protofake/mainboilerplate"
	"go.gazette.dev/protofake/metrics"
	"go.gazette.dev/protofake/pool"
	"go.gazette.dev/protofake/schema"
	"go.gazette.dev/protofake/sink"
	"go.gazette.dev/protofake/task"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// fs is the filesystem of schema, pool and output files.
var fs = afero.NewOsFs()

// schemaConfig locates the schema and message type to generate.
type schemaConfig struct {
	ProtoFile     string   `long:"proto-file" short:"f" env:"PROTO_FILE" description:"Path of the .proto file defining the message type"`
	ImportPaths   []string `long:"import-path" short:"I" env:"IMPORT_PATHS" env-delim:"," description:"Directories searched for imports of the .proto file (its own directory is searched first)"`
	DescriptorSet string   `long:"descriptor-set" env:"DESCRIPTOR_SET" description:"Path of a serialized FileDescriptorSet to use instead of --proto-file"`
	Message       string   `long:"message" short:"m" env:"MESSAGE" required:"true" description:"Fully-qualified name of the message type (eg, acme.orders.Order)"`
}

// load the schema Index and message type of the schemaConfig.
func (cfg schemaConfig) load(ctx context.Context) (*schema.Index, protoreflect.MessageDescriptor, error) {
	var index *schema.Index
	var err error

	switch {
	case cfg.DescriptorSet != "":
		var b []byte
		if b, err = afero.ReadFile(fs, cfg.DescriptorSet); err != nil {
			return nil, nil, errors.Wrap(err, "reading descriptor set")
		}
		index, err = schema.LoadDescriptorSet(b)
	case cfg.ProtoFile != "":
		index, err = schema.LoadFile(ctx, fs, cfg.ProtoFile, cfg.ImportPaths...)
	default:
		return nil, nil, errors.New("one of --proto-file or --descriptor-set is required")
	}
	if err != nil {
		return nil, nil, err
	}
	md, err := index.Message(cfg.Message)
	if err != nil {
		return nil, nil, err
	}
	return index, md, nil
}

// generateConfig configures generation of messages.
type generateConfig struct {
	schemaConfig

	Count        int           `long:"count" short:"n" env:"COUNT" default:"1" description:"Number of messages to generate"`
	Pools        []string      `long:"pool" short:"p" env:"POOLS" env-delim:";" description:"Pool of values shared across messages, as name:count:type (eg, user_ids:100:uuid). May be repeated"`
	PoolsFile    string        `long:"pools-file" env:"POOLS_FILE" description:"Path of a YAML file of pool declarations"`
	Seed         uint64        `long:"seed" env:"SEED" description:"Seed of generation. A random seed is used (and logged) if zero"`
	Epoch        string        `long:"epoch" env:"EPOCH" description:"RFC 3339 time about which Timestamp values are generated. Defaults to now"`
	MaxDepth     int           `long:"max-depth" env:"MAX_DEPTH" default:"8" description:"Maximum depth of nested messages"`
	FlushTimeout time.Duration `long:"flush-timeout" env:"FLUSH_TIMEOUT" default:"30s" description:"Maximum time to await output flush on exit"`
}

// poolConfigs returns declared pools of the --pools-file, then --pool flags.
func (cfg generateConfig) poolConfigs() ([]pool.Config, error) {
	var out []pool.Config

	if cfg.PoolsFile != "" {
		var f, err = fs.Open(cfg.PoolsFile)
		if err != nil {
			return nil, errors.Wrap(err, "opening pools file")
		}
		defer f.Close()

		if out, err = pool.LoadConfigs(f); err != nil {
			return nil, errors.WithMessagef(err, "loading %s", cfg.PoolsFile)
		}
	}
	for _, p := range cfg.Pools {
		var pc, err = pool.ParseConfig(p)
		if err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, nil
}

// newGenerator returns a generator.Context having declared pools, and
// prepared for generation of |md|.
func (cfg generateConfig) newGenerator(md protoreflect.MessageDescriptor) (*generator.Context, error) {
	if cfg.Count < 0 {
		return nil, errors.Errorf("invalid count (%d; expected >= 0)", cfg.Count)
	}
	var opts = generator.Options{Seed: cfg.Seed, MaxDepth: cfg.MaxDepth}

	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	if cfg.Epoch != "" {
		var err error
		if opts.Epoch, err = time.Parse(time.RFC3339Nano, cfg.Epoch); err != nil {
			return nil, errors.Wrap(err, "parsing --epoch")
		}
	}
	log.WithFields(log.Fields{
		"seed":    opts.Seed,
		"message": md.FullName(),
		"count":   cfg.Count,
	}).Info("generating messages")

	var gen = generator.NewContext(opts)

	var pools, err = cfg.poolConfigs()
	if err != nil {
		return nil, err
	}
	for _, pc := range pools {
		if err = gen.Pools().Create(gen.Rand(), pc); err != nil {
			return nil, err
		}
	}
	if err = gen.Prepare(md); err != nil {
		return nil, err
	}
	return gen, nil
}

// newSinkFn builds the Sink of a generating command.
type newSinkFn func(ctx context.Context, index *schema.Index, md protoreflect.MessageDescriptor) (sink.Sink, error)

// runGenerate generates messages of the generateConfig into the Sink of
// |newSink|. Generation stops early upon SIGINT or SIGTERM, and the Sink
// is then closed within the configured flush timeout. A failed run returns
// an *mbp.ExitError.
func runGenerate(cfg generateConfig, newSink newSinkFn) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	mbp.InitLog(Config.Log)
	prometheus.MustRegister(metrics.Collectors()...)

	return exitOnError(run(cfg, newSink))
}

// exitOnError maps a non-nil |err| to an *mbp.ExitError.
func exitOnError(err error) error {
	if _, ok := err.(*mbp.ExitError); err != nil && !ok {
		err = &mbp.ExitError{Code: 1, Reason: err.Error()}
	}
	return err
}

func run(cfg generateConfig, newSink newSinkFn) error {
	var tasks = task.NewGroup(context.Background())
	var ctx = tasks.Context()

	var index, md, err = cfg.load(ctx)
	if err != nil {
		return err
	}
	gen, err := cfg.newGenerator(md)
	if err != nil {
		return err
	}
	out, err := newSink(ctx, index, md)
	if err != nil {
		return err
	}
	if err = mbp.QueueDiagnostics(Config.Diagnostics, tasks); err != nil {
		return err
	}

	var signalCh = make(chan os.Signal, 1)
	var interrupted bool
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(signalCh)

	tasks.Queue("signal", func() error {
		select {
		case sig := <-signalCh:
			log.WithField("signal", sig).Warn("caught signal; stopping generation")
			interrupted = true
			tasks.Cancel()
		case <-ctx.Done():
		}
		return nil
	})
	tasks.Queue("generate", func() error {
		defer tasks.Cancel()

		var err = generate(ctx, gen, md, cfg.Count, out)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	tasks.GoRun()
	var genErr = tasks.Wait()

	// The run Context is done. Flush within a fresh, bounded Context.
	var flushCtx, cancel = context.WithTimeout(context.Background(), cfg.FlushTimeout)
	defer cancel()

	if err = out.Close(flushCtx); err != nil && genErr == nil {
		genErr = err
	}
	if genErr != nil {
		return genErr
	} else if interrupted {
		return &mbp.ExitError{Code: 130, Reason: "interrupted"}
	}
	return nil
}

// generate |count| messages of |md| into Sink |out|.
func generate(ctx context.Context, gen *generator.Context, md protoreflect.MessageDescriptor, count int, out sink.Sink) error {
	for i := 0; i != count; i++ {
		if err := ctx.Err(); err != nil {
			log.WithField("generated", i).Warn("generation cancelled")
			return err
		}
		var msg, err = gen.Generate(md)
		if err != nil {
			return errors.WithMessagef(err, "generating message %d", i)
		}
		metrics.GeneratedMessagesTotal.Inc()

		if err = out.Put(ctx, msg); err != nil {
			return errors.WithMessagef(err, "output of message %d", i)
		}
	}
	return nil
}
