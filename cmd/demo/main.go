package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/comalice/mvix"
	"github.com/comalice/mvix/extensibility"
	"github.com/comalice/mvix/internal/telemetry"
	"github.com/comalice/mvix/production"
)

type light string

const (
	red    light = "red"
	green  light = "green"
	yellow light = "yellow"
)

type event interface{}

type timer struct{ At time.Time }

// pedestrian asks for a shortened green phase.
type pedestrian struct{}

type traffic struct {
	Light   light `json:"light"`
	Cycles  int   `json:"cycles"`
	Waiting bool  `json:"waiting"`
}

func reduce(e event, s traffic) traffic {
	switch e.(type) {
	case timer:
		switch s.Light {
		case red:
			s.Light = green
		case green:
			s.Light = yellow
		default:
			s.Light = red
			s.Cycles++
			s.Waiting = false
		}
	case pedestrian:
		s.Waiting = true
	}
	return s
}

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	interval := flag.Duration("interval", 2*time.Second, "timer interval")
	cycles := flag.Int("cycles", 4, "stop after this many full cycles")
	flag.Parse()

	cfg := mvix.DefaultConfig()
	cfg.ID = "traffic-light"
	if *configPath != "" {
		loaded, err := mvix.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if err := mvix.ParseEnv(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, "mvix-demo")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer shutdown(context.Background())

	persister, err := production.NewJSONPersister[traffic](filepath.Join(os.TempDir(), "mvix-demo"))
	if err != nil {
		log.Fatalf("persister: %v", err)
	}
	publisher := production.NewChannelPublisher[event, traffic](100)
	defer publisher.Close()

	crossing := mvix.Scoped(func(s *mvix.Scope[event]) {
		mvix.OnEventLatest(s, func(ctx context.Context, e pedestrian) error {
			select {
			case <-time.After(*interval / 2):
				return s.Send(ctx, timer{At: time.Now()})
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	f := mvix.NewFeature[event, traffic](mvix.ReducerFunc[event, traffic](reduce), traffic{Light: red},
		mvix.WithConfig[event, traffic](cfg),
		mvix.WithPersister[event, traffic](persister),
		mvix.WithPublisher[event, traffic](publisher),
		mvix.WithMiddleware[event, traffic](
			extensibility.Ticker[event](*interval, func(t time.Time) event { return timer{At: t} }),
			crossing,
		),
	)
	if err := f.Launch(ctx); err != nil {
		log.Fatalf("launch: %v", err)
	}
	defer f.Stop()

	lights := mvix.RenderFunc[traffic](func(s traffic) {
		fmt.Printf("light=%s cycles=%d waiting=%v\n", s.Light, s.Cycles, s.Waiting)
	})
	unbind := mvix.Bind[traffic](ctx, f, lightView{lights})
	defer unbind()

	go func() {
		time.Sleep(*interval * 3)
		f.Dispatch(pedestrian{})
	}()

	visualizer := &production.Visualizer[event, traffic]{
		Label: func(s traffic) string { return string(s.Light) },
	}
	var history []mvix.Transition[event, traffic]
	for {
		select {
		case t, ok := <-publisher.C():
			if !ok {
				return
			}
			history = append(history, t)
			fmt.Printf("published #%d: %T %s -> %s\n", t.Seq, t.Event, t.From.Light, t.To.Light)
			if t.To.Cycles >= *cycles {
				fmt.Printf("Demo complete after %d cycles.\n", t.To.Cycles)
				fmt.Println("DOT:\n" + visualizer.ExportDOT(history, t.To))
				return
			}
		case <-f.Done():
			if err := f.Wait(); err != nil {
				log.Printf("feature stopped: %v", err)
			}
			fmt.Println("\nShutting down gracefully...")
			return
		}
	}
}

// lightView only re-renders when the light or the waiting flag changes.
type lightView struct {
	mvix.RenderFunc[traffic]
}

func (lightView) TrackedState() []mvix.KeyFunc[traffic] {
	return []mvix.KeyFunc[traffic]{
		func(s traffic) any { return s.Light },
		func(s traffic) any { return s.Waiting },
	}
}
