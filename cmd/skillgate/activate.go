package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/skillgate/skillgate/pkg/banner"
	"github.com/skillgate/skillgate/pkg/catalog"
	"github.com/skillgate/skillgate/pkg/db"
	"github.com/skillgate/skillgate/pkg/intent"
	"github.com/skillgate/skillgate/pkg/intent/cache"
	"github.com/skillgate/skillgate/pkg/logger"
	"github.com/skillgate/skillgate/pkg/pipeline"
	"github.com/skillgate/skillgate/pkg/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// hookInput is the JSON the assistant writes to the hook's stdin on every
// prompt submission. Fields beyond session_id and prompt are accepted but
// unused.
type hookInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	PermissionMode string `json:"permission_mode"`
	Prompt         string `json:"prompt"`
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Select skills for a prompt read from stdin",
	Long: `Activate reads the assistant's prompt-submit hook input from stdin,
runs the skill-selection pipeline, and prints the activation banner to
stdout. Intended to be wired as a UserPromptSubmit hook.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runActivate(cmd.Context())
	},
}

func runActivate(ctx context.Context) error {
	input, err := readHookInput(os.Stdin)
	if err != nil {
		return err
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	cacheStore, err := buildCacheStore()
	if err != nil {
		return err
	}

	sessions, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer sessions.Close()

	orchestrator := pipeline.New(cat, buildProvider(), cacheStore, sessions, pipeline.Config{
		AnalysisTimeout: viper.GetDuration("analysis_timeout"),
		MaxDirect:       viper.GetInt("max_direct"),
	})

	result := orchestrator.Run(ctx, input.SessionID, input.Prompt)

	if out := banner.Render(result.Selection(), viper.GetBool("debug")); out != "" {
		fmt.Print(out)
	}

	// Opportunistic housekeeping after the user-visible work is done.
	if _, err := sessions.Cleanup(ctx, viper.GetDuration("session.retention")); err != nil {
		logger.G(ctx).WithError(err).Debug("session cleanup failed")
	}
	if _, err := cacheStore.GC(ctx); err != nil {
		logger.G(ctx).WithError(err).Debug("cache garbage collection failed")
	}

	return nil
}

func readHookInput(r io.Reader) (*hookInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read hook input")
	}

	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, errors.Wrap(err, "failed to parse hook input")
	}

	if strings.TrimSpace(input.Prompt) == "" {
		return nil, errors.New("hook input has no prompt")
	}
	if input.SessionID == "" {
		input.SessionID = uuid.NewString()
	}
	return &input, nil
}

func loadCatalog() (*catalog.Catalog, error) {
	path := viper.GetString("catalog_path")
	if path == "" {
		path = catalog.DefaultRulesPath()
	}

	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}

	cat.EnrichDescriptions(catalog.DiscoverDocs(catalog.DefaultDocDirs()...))
	return cat, nil
}

// buildProvider resolves the configured intent provider. A nil provider
// disables AI analysis so the pipeline uses keyword matching directly.
func buildProvider() intent.Provider {
	if !viper.GetBool("ai_enabled") {
		return nil
	}

	switch viper.GetString("provider") {
	case "local":
		return intent.NewLocalProvider(viper.GetString("local_endpoint"))
	case "keyword":
		return nil
	default:
		return intent.NewAnthropicProvider()
	}
}

func buildCacheStore() (*cache.Store, error) {
	dir := viper.GetString("cache.dir")
	if dir == "" {
		var err error
		dir, err = cache.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	return cache.NewStore(dir, viper.GetDuration("cache.ttl")), nil
}

func openSessionStore(ctx context.Context) (*session.Store, error) {
	dbPath := viper.GetString("session.db_path")
	if dbPath == "" {
		var err error
		dbPath, err = db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return session.Open(ctx, dbPath)
}
