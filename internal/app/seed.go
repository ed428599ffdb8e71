package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bandmate/backend/internal/config"
	"github.com/bandmate/backend/internal/social"
)

// seedFile is the JSON layout of <seed dir>/<name>_seed.json. Entries carry
// explicit ids so that a seed can be applied more than once.
type seedFile struct {
	Bands       []social.CreateBandInput   `json:"bands"`
	Users       []seedUser                 `json:"users"`
	Friendships [][2]string                `json:"friendships"`
	Requests    []seedRequest              `json:"requests"`
	Reviews     []social.CreateReviewInput `json:"reviews"`
	Samples     []social.AddSampleInput    `json:"samples"`
}

type seedUser struct {
	social.RegisterUserInput
	Band string `json:"band,omitempty"`
}

type seedRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func runSeed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	seedDir := cfg.SeedDir
	if !filepath.IsAbs(seedDir) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		seedDir = filepath.Join(wd, seedDir)
	}

	seedName := args[0]
	if !strings.HasSuffix(seedName, ".json") {
		seedName = fmt.Sprintf("%s_seed.json", seedName)
	}

	contents, err := os.ReadFile(filepath.Join(seedDir, seedName))
	if err != nil {
		return fmt.Errorf("read seed %s: %w", seedName, err)
	}

	var seed seedFile
	if err := json.Unmarshal(contents, &seed); err != nil {
		return fmt.Errorf("decode seed %s: %w", seedName, err)
	}

	backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.close()

	if err := applySeed(ctx, social.New(backend.store), seed); err != nil {
		return fmt.Errorf("apply seed %s: %w", seedName, err)
	}

	fmt.Printf("applied seed %s\n", seedName)
	return nil
}

// applySeed loads seed through the engine. Entities that already exist are
// skipped, so re-running a seed only fills in what is missing.
func applySeed(ctx context.Context, engine *social.Engine, seed seedFile) error {
	for _, band := range seed.Bands {
		if _, err := engine.CreateBand(ctx, band); ignoreConflict(err) != nil {
			return fmt.Errorf("band %q: %w", band.Name, err)
		}
	}

	for _, user := range seed.Users {
		if _, err := engine.RegisterUser(ctx, user.RegisterUserInput); ignoreConflict(err) != nil {
			return fmt.Errorf("user %q: %w", user.Email, err)
		}
		if user.Band == "" {
			continue
		}
		if user.ID == "" {
			return fmt.Errorf("user %q: band membership requires an explicit id", user.Email)
		}
		if err := engine.JoinBand(ctx, user.ID, user.Band); err != nil {
			return fmt.Errorf("user %q joining band %q: %w", user.Email, user.Band, err)
		}
	}

	for _, pair := range seed.Friendships {
		if err := engine.SendFriendRequest(ctx, pair[0], pair[1]); ignoreConflict(err) != nil {
			return fmt.Errorf("friendship %s/%s: %w", pair[0], pair[1], err)
		}
		if err := engine.AcceptFriendRequest(ctx, pair[1], pair[0]); err != nil {
			return fmt.Errorf("friendship %s/%s: %w", pair[0], pair[1], err)
		}
	}

	for _, req := range seed.Requests {
		if err := engine.SendFriendRequest(ctx, req.From, req.To); ignoreConflict(err) != nil {
			return fmt.Errorf("friend request %s -> %s: %w", req.From, req.To, err)
		}
	}

	for _, review := range seed.Reviews {
		if _, err := engine.CreateReview(ctx, review); err != nil {
			return fmt.Errorf("review by %s: %w", review.AuthorID, err)
		}
	}

	for _, sample := range seed.Samples {
		if _, err := engine.AddSample(ctx, sample); err != nil {
			return fmt.Errorf("sample %q: %w", sample.Name, err)
		}
	}
	return nil
}

func ignoreConflict(err error) error {
	if errors.Is(err, social.ErrConflict) {
		return nil
	}
	return err
}
