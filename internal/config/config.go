package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	GitHubToken     string
	TargetRepoCount int
	ReposPerWord    int
	OutputDir       string
	Language        string
	AcceptedYears   []int
	WordAPIURL      string
	SearchDelay     time.Duration
	DownloadDelay   time.Duration
	DownloadWorkers int
	CronSchedule    string
	RunOnStartup    bool
	// Publishing configuration (disabled when NATSUrl is empty)
	NATSUrl               string
	AcceptedSubject       string
	DownloadOKSubject     string
	DownloadFailedSubject string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		GitHubToken:           os.Getenv("GITHUB_TOKEN"),
		OutputDir:             os.Getenv("OUTPUT_DIR"),
		Language:              os.Getenv("SEARCH_LANGUAGE"),
		WordAPIURL:            os.Getenv("WORD_API_URL"),
		CronSchedule:          os.Getenv("CRON_SCHEDULE"),
		NATSUrl:               os.Getenv("NATS_URL"),
		AcceptedSubject:       os.Getenv("ACCEPTED_SUBJECT"),
		DownloadOKSubject:     os.Getenv("DOWNLOAD_OK_SUBJECT"),
		DownloadFailedSubject: os.Getenv("DOWNLOAD_FAILED_SUBJECT"),
	}

	// Set defaults
	if cfg.OutputDir == "" {
		cfg.OutputDir = "repos"
	}
	if cfg.Language == "" {
		cfg.Language = "java"
	}
	if cfg.WordAPIURL == "" {
		cfg.WordAPIURL = "https://random-word-api.herokuapp.com/word"
	}
	if cfg.AcceptedSubject == "" {
		cfg.AcceptedSubject = "harvest.accepted"
	}
	if cfg.DownloadOKSubject == "" {
		cfg.DownloadOKSubject = "harvest.downloads.ok"
	}
	if cfg.DownloadFailedSubject == "" {
		cfg.DownloadFailedSubject = "harvest.downloads.failed"
	}

	var err error
	if cfg.TargetRepoCount, err = intEnv("TARGET_REPO_COUNT", 100); err != nil {
		return nil, err
	}
	if cfg.ReposPerWord, err = intEnv("REPOS_PER_WORD", 10); err != nil {
		return nil, err
	}
	if cfg.DownloadWorkers, err = intEnv("DOWNLOAD_WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.SearchDelay, err = durationEnv("SEARCH_DELAY", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.DownloadDelay, err = durationEnv("DOWNLOAD_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.AcceptedYears, err = yearsEnv("ACCEPTED_YEARS", []int{2021, 2022}); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.GitHubToken == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is required")
	}
	if cfg.TargetRepoCount <= 0 {
		return nil, fmt.Errorf("TARGET_REPO_COUNT must be positive, got %d", cfg.TargetRepoCount)
	}
	if cfg.ReposPerWord <= 0 {
		return nil, fmt.Errorf("REPOS_PER_WORD must be positive, got %d", cfg.ReposPerWord)
	}
	if cfg.DownloadWorkers <= 0 {
		return nil, fmt.Errorf("DOWNLOAD_WORKERS must be positive, got %d", cfg.DownloadWorkers)
	}

	// Check if we should run on startup
	if os.Getenv("RUN_ON_STARTUP") == "true" {
		cfg.RunOnStartup = true
	}

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 3s, got %q", key, v)
	}
	return d, nil
}

func yearsEnv(key string, def []int) ([]int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	var years []int
	for _, part := range strings.Split(v, ",") {
		year, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%s must be a comma-separated list of years, got %q", key, v)
		}
		years = append(years, year)
	}
	return years, nil
}
