package cmd

import (
	"errors"
	"io"
	"io/fs"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/upkeep/internal/backup"
	"github.com/adamancini/upkeep/internal/config"
	"github.com/adamancini/upkeep/internal/logging"
	"github.com/adamancini/upkeep/internal/notes"
	"github.com/adamancini/upkeep/internal/output"
	"github.com/adamancini/upkeep/internal/update"
)

// appEnv is the resolved configuration shared by the commands.
type appEnv struct {
	settings *config.Settings
	manifest *config.Manifest
	version  string
}

func (e *appEnv) coords() config.RepoCoordinates {
	return e.manifest.Repo
}

// initLogging applies flags over the log section of the settings file.
func initLogging() error {
	level, file := logLevel, logFile
	if s, err := config.LoadOrDefault(configPath); err == nil {
		if level == "" {
			level = s.Log.Level
		}
		if file == "" {
			file = s.Log.File
		}
	}

	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	case level == "":
		level = config.DefaultLogLevel
	}
	return logging.InitLog(level, file)
}

// loadEnv loads settings and the manifest. A missing default manifest falls
// back to the default repository and the build version.
func loadEnv() (*appEnv, error) {
	settings, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	path := manifestPath
	if path == "" {
		wd, _ := os.Getwd()
		path = config.ResolvePath(settings.Manifest, settings.Dir(), wd)
	}

	manifest, err := config.LoadManifest(path)
	if err != nil {
		if manifestPath != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Debugf("no manifest at %s, releases come from %s", path, config.DefaultCoordinates())
		manifest = &config.Manifest{Repo: config.DefaultCoordinates()}
	}

	version := manifest.Version
	if version == "" {
		version = buildVersion
	}
	log.Debugf("current version %s, repository %s", version, manifest.Repo)

	return &appEnv{settings: settings, manifest: manifest, version: version}, nil
}

func (e *appEnv) newFeed() *update.GitHubFeed {
	s := e.settings
	opts := []update.FeedOption{
		update.WithBaseURL(s.Feed.APIBase),
		update.WithToken(s.Feed.Token),
		update.WithTimeout(s.Feed.Timeout.Std()),
		update.WithPrerelease(s.Feed.IncludePrerelease),
	}
	if s.Feed.BinaryPrefix != "" {
		opts = append(opts, update.WithBinaryPrefix(s.Feed.BinaryPrefix))
	}
	if s.Backup.Keep > 0 {
		opts = append(opts, update.WithBackup(e.backupBinary))
	}
	return update.NewGitHubFeed(e.version, e.coords().Owner, e.coords().Repo, opts...)
}

func (e *appEnv) newBackupManager() (*backup.Manager, error) {
	if dir := e.settings.Backup.Dir; dir != "" {
		return backup.NewManagerWithDir(expandHomePath(dir)), nil
	}
	return backup.NewManager()
}

// backupBinary saves target before it is replaced and prunes old copies.
func (e *appEnv) backupBinary(target, current string, next update.Version) error {
	manager, err := e.newBackupManager()
	if err != nil {
		return err
	}
	bak, err := manager.Create(target, current, "before "+next.Tag())
	if err != nil {
		return err
	}
	log.Infof("saved %s as backup %s", target, bak.ID)

	if _, err := manager.Prune(e.settings.Backup.Keep); err != nil {
		log.Warnf("failed to prune backups: %v", err)
	}
	return nil
}

func (e *appEnv) newResolver() *notes.Resolver {
	s := e.settings
	dirs := notes.SearchDirs()
	if dir := s.Dir(); dir != "" {
		dirs = append(dirs, dir)
	}

	local := notes.NewLocalSource(s.Notes.File, dirs...)
	remote := notes.NewRemoteSource(s.Notes.APIBase, e.coords().Owner, e.coords().Repo).WithToken(s.Feed.Token)
	return notes.NewResolver(
		notes.WithSources(local, remote),
		notes.WithTimeout(s.Notes.Timeout.Std()),
	)
}

func (e *appEnv) changelogURL(info *update.Info) string {
	return e.settings.ChangelogFor(e.coords(), info.Version.Original(), info.ReleaseURL)
}

func newWriter(w io.Writer) *output.Writer {
	format, _ := output.ParseFormat(outputFormat)
	return output.NewWriter(w, format)
}
