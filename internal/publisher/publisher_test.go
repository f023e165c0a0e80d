package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/klimeurt/repo-harvester/internal/config"
	"github.com/klimeurt/repo-harvester/internal/downloader"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func runMockNATSServer() *natsserver.Server {
	opts := &natsserver.Options{
		Host: "127.0.0.1",
		Port: -1, // Use random port
	}

	server := natsserver.New(opts)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		panic("NATS server not ready")
	}

	return server
}

func testPublisherConfig(url string) *config.Config {
	return &config.Config{
		NATSUrl:               url,
		AcceptedSubject:       "harvest.accepted",
		DownloadOKSubject:     "harvest.downloads.ok",
		DownloadFailedSubject: "harvest.downloads.failed",
	}
}

func TestNewDisabledWithoutURL(t *testing.T) {
	pub, err := New(testPublisherConfig(""))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	if pub != nil {
		t.Fatal("New() without NATS URL should return nil publisher")
	}

	// Every method on a nil publisher is a no-op
	if err := pub.PublishAccepted("octocat/hello", "kernel", 1); err != nil {
		t.Errorf("PublishAccepted() on nil publisher = %v, want nil", err)
	}
	if err := pub.PublishDownload(downloader.Result{FullName: "octocat/hello"}); err != nil {
		t.Errorf("PublishDownload() on nil publisher = %v, want nil", err)
	}
	pub.Close()
}

func TestNewInvalidURL(t *testing.T) {
	_, err := New(testPublisherConfig("invalid://url"))
	if err == nil {
		t.Fatal("New() expected error, got nil")
	}
}

func TestPublishAccepted(t *testing.T) {
	server := runMockNATSServer()
	defer server.Shutdown()

	cfg := testPublisherConfig(server.ClientURL())
	pub, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	messages := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(cfg.AcceptedSubject, messages)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	if err := pub.PublishAccepted("octocat/hello", "kernel", 3); err != nil {
		t.Fatalf("PublishAccepted() unexpected error: %v", err)
	}

	select {
	case msg := <-messages:
		var repo AcceptedRepo
		if err := json.Unmarshal(msg.Data, &repo); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if repo.FullName != "octocat/hello" {
			t.Errorf("FullName = %q, want %q", repo.FullName, "octocat/hello")
		}
		if repo.Keyword != "kernel" {
			t.Errorf("Keyword = %q, want %q", repo.Keyword, "kernel")
		}
		if repo.Round != 3 {
			t.Errorf("Round = %d, want 3", repo.Round)
		}
		if repo.AcceptedAt.IsZero() {
			t.Error("AcceptedAt not set")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for accepted message")
	}
}

func TestPublishDownloadRouting(t *testing.T) {
	server := runMockNATSServer()
	defer server.Shutdown()

	cfg := testPublisherConfig(server.ClientURL())
	pub, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	okMessages := make(chan *nats.Msg, 1)
	okSub, err := nc.ChanSubscribe(cfg.DownloadOKSubject, okMessages)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer func() { _ = okSub.Unsubscribe() }()

	failedMessages := make(chan *nats.Msg, 1)
	failedSub, err := nc.ChanSubscribe(cfg.DownloadFailedSubject, failedMessages)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer func() { _ = failedSub.Unsubscribe() }()

	good := downloader.Result{FullName: "octocat/hello", Dir: "repos/octocat__hello", Kind: downloader.KindOK}
	bad := downloader.Result{FullName: "octocat/broken", Kind: downloader.KindFetch, Error: "boom", Err: errors.New("boom")}

	if err := pub.PublishDownload(good); err != nil {
		t.Fatalf("PublishDownload() unexpected error: %v", err)
	}
	if err := pub.PublishDownload(bad); err != nil {
		t.Fatalf("PublishDownload() unexpected error: %v", err)
	}

	select {
	case msg := <-okMessages:
		var res downloader.Result
		if err := json.Unmarshal(msg.Data, &res); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if res.FullName != good.FullName {
			t.Errorf("ok subject FullName = %q, want %q", res.FullName, good.FullName)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for ok message")
	}

	select {
	case msg := <-failedMessages:
		var res downloader.Result
		if err := json.Unmarshal(msg.Data, &res); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if res.FullName != bad.FullName {
			t.Errorf("failed subject FullName = %q, want %q", res.FullName, bad.FullName)
		}
		if res.Error != "boom" {
			t.Errorf("failed subject Error = %q, want %q", res.Error, "boom")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for failed message")
	}
}
