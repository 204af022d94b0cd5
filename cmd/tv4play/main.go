// Command tv4play: browse TV4 Play from Plex.
//
//	serve   Serve the plug-in routes (MediaContainer XML/JSON), icons, /healthz and /metrics
//	mount   Mount the navigation tree read-only over FUSE (.strm files per video)
//	warm    Prefetch the root catalog into the response cache and exit
//	check   Probe the upstream catalog and, with -base-url, a running adapter
//	browse  Print one navigation level to stdout
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snapetech/tv4play/internal/config"
	"github.com/snapetech/tv4play/internal/health"
	"github.com/snapetech/tv4play/internal/logging"
	"github.com/snapetech/tv4play/internal/menu"
	"github.com/snapetech/tv4play/internal/menufs"
	"github.com/snapetech/tv4play/internal/server"
	"github.com/snapetech/tv4play/internal/telemetry"
	"github.com/snapetech/tv4play/internal/thumb"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = config.LoadEnvFile(".env")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveAddr := serveCmd.String("addr", "", "Listen address (default: TV4PLAY_ADDR)")
	serveWarm := serveCmd.Duration("warm", -1, "Catalog warm interval, e.g. 30m; 0 = off (default: TV4PLAY_WARM_INTERVAL)")

	mountCmd := flag.NewFlagSet("mount", flag.ExitOnError)
	mountPoint := mountCmd.String("mount", "", "Mount point (default: TV4PLAY_MOUNT)")
	mountPages := mountCmd.Int("pages", 0, "Video pages per clip list directory (default: TV4PLAY_MOUNT_MAX_PAGES)")
	mountAllowOther := mountCmd.Bool("allow-other", false, "Allow other users (Plex) to read the mount (default: TV4PLAY_MOUNT_ALLOW_OTHER)")

	warmCmd := flag.NewFlagSet("warm", flag.ExitOnError)

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkBaseURL := checkCmd.String("base-url", "", "Also check a running adapter at this base URL, e.g. http://localhost:32500")
	checkTimeout := checkCmd.Duration("timeout", 30*time.Second, "Overall timeout")

	browseCmd := flag.NewFlagSet("browse", flag.ExitOnError)
	browsePath := browseCmd.String("path", config.PluginPrefix, "Plug-in path with query, as found in a Directory key")
	browseFormat := browseCmd.String("format", "text", "text | xml | json")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <serve|mount|warm|check|browse> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  serve   Serve the plug-in for Plex\n")
		fmt.Fprintf(os.Stderr, "  mount   Mount the navigation tree over FUSE\n")
		fmt.Fprintf(os.Stderr, "  warm    Prefetch the root catalog into the cache\n")
		fmt.Fprintf(os.Stderr, "  check   Probe upstream (and -base-url) and report\n")
		fmt.Fprintf(os.Stderr, "  browse  Print one navigation level (-path from a Directory key)\n")
		os.Exit(1)
	}

	cfg := config.Load()
	log := logging.New(cfg.LogFormat, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := telemetry.InitSentry(cfg.SentryDSN, version); err != nil {
		log.WithError(err).Warn("sentry disabled")
	}
	defer telemetry.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		if *serveAddr != "" {
			cfg.Addr = *serveAddr
		}
		if *serveWarm >= 0 {
			cfg.WarmInterval = *serveWarm
		}
		st, err := newStack(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("startup failed")
		}
		defer st.Close()
		srv := &server.Server{
			Addr:         cfg.Addr,
			Site:         st.site,
			Builder:      st.builder,
			ResourcesDir: cfg.ResourcesDir,
			Log:          log,
		}
		if cfg.WarmInterval > 0 {
			go st.warmLoop(ctx, cfg.WarmInterval, srv.RecordWarm)
		}
		if err := srv.Run(ctx); err != nil {
			log.WithError(err).Fatal("server failed")
		}

	case "mount":
		_ = mountCmd.Parse(os.Args[2:])
		mp := *mountPoint
		if mp == "" {
			mp = cfg.MountPoint
		}
		pages := *mountPages
		if pages <= 0 {
			pages = cfg.MountMaxPages
		}
		allowOther := *mountAllowOther || cfg.MountAllowOther
		st, err := newStack(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("startup failed")
		}
		defer st.Close()
		fsrv, err := menufs.Mount(mp, &menufs.Tree{Menus: st.builder, MaxPages: pages}, allowOther, log)
		if err != nil {
			log.WithError(err).Fatal("mount failed")
		}
		log.WithFields(logrus.Fields{"mount": mp, "pages": pages, "allow_other": allowOther}).Info("mounted; Ctrl+C to unmount")
		go func() {
			<-ctx.Done()
			if err := fsrv.Unmount(); err != nil {
				log.WithError(err).Warn("unmount")
			}
		}()
		fsrv.Wait()

	case "warm":
		_ = warmCmd.Parse(os.Args[2:])
		if cfg.CacheBackend == config.CacheMemory {
			log.Warn("warm with the memory cache backend does not outlive this process; set TV4PLAY_CACHE_BACKEND=sqlite or redis")
		}
		st, err := newStack(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("startup failed")
		}
		defer st.Close()
		if err := st.warm(ctx); err != nil {
			log.WithError(err).Fatal("warm failed")
		}
		log.WithField("url", st.site.CatalogURL).Info("catalog cached")

	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		cctx, cancel := context.WithTimeout(ctx, *checkTimeout)
		defer cancel()
		site := cfg.Site()
		if err := health.CheckUpstream(cctx, nil, site.CatalogURL); err != nil {
			log.WithError(err).Error("upstream check failed")
			os.Exit(1)
		}
		log.WithField("url", site.CatalogURL).Info("upstream OK")
		if err := health.CheckResources(cfg.ResourcesDir, thumb.Icons(site)); err != nil {
			log.WithError(err).Warn("icon resources incomplete")
		}
		if *checkBaseURL != "" {
			base := strings.TrimSuffix(*checkBaseURL, "/")
			if err := health.CheckEndpoints(cctx, base, site.Prefix); err != nil {
				log.WithError(err).Error("adapter check failed")
				os.Exit(1)
			}
			log.WithField("base_url", base).Info("adapter OK")
		}

	case "browse":
		_ = browseCmd.Parse(os.Args[2:])
		st, err := newStack(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("startup failed")
		}
		defer st.Close()
		l, err := linkFromPath(st.site.Prefix, *browsePath)
		if err != nil {
			log.WithError(err).Fatal("bad -path")
		}
		m, err := st.builder.Open(ctx, l)
		if err != nil {
			log.WithError(err).Fatal("browse failed")
		}
		if err := printMenu(os.Stdout, st.site.Prefix, *browseFormat, m); err != nil {
			log.WithError(err).Fatal("print")
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

// linkFromPath parses a Directory key such as
// /video/tv4play/programs?title=Sport&thumb=Sport.
func linkFromPath(prefix, path string) (menu.Link, error) {
	u, err := url.Parse(path)
	if err != nil {
		return menu.Link{}, err
	}
	rest := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
	action := menu.ActionCategories
	if rest != "" {
		action = menu.Action(rest)
	}
	return menu.ParseLink(action, u.Query())
}
