package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/varun-revspot/livekit-outbound-caller/internal/agent"
	"github.com/varun-revspot/livekit-outbound-caller/internal/banner"
	"github.com/varun-revspot/livekit-outbound-caller/internal/config"
	"github.com/varun-revspot/livekit-outbound-caller/internal/events"
	"github.com/varun-revspot/livekit-outbound-caller/internal/job"
	"github.com/varun-revspot/livekit-outbound-caller/internal/logger"
	"github.com/varun-revspot/livekit-outbound-caller/internal/orchestrator"
	"github.com/varun-revspot/livekit-outbound-caller/internal/telephony"
)

func main() {
	cfg := config.Load()

	logger.Init(os.Stdout, cfg.LogFormat)
	logger.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	meta, err := job.Parse(cfg.Metadata)
	if err != nil {
		slog.Error("invalid job metadata", "error", err)
		os.Exit(1)
	}

	banner.Print("OUTBOUND CALLER", []banner.ConfigLine{
		{Label: "LiveKit URL", Value: cfg.URL},
		{Label: "SIP Trunk", Value: cfg.SIPTrunkID},
		{Label: "Callee", Value: meta.PhoneNumber},
		{Label: "Answer Timeout", Value: cfg.AnswerTimeout.String()},
	})

	os.Exit(run(cfg, meta))
}

func run(cfg *config.Config, meta *job.Metadata) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hostname, _ := os.Hostname()

	tel := telephony.NewLiveKitClient(cfg.URL, cfg.APIKey, cfg.APISecret, cfg.SIPTrunkID, slog.Default())

	// The pipeline stages here are development stand-ins; provider-backed
	// stages are wired in at deployment.
	controller := agent.NewController(agent.Pipeline{
		STT: agent.NullSpeechToText{},
		LLM: agent.NewStaticLanguageModel(),
		TTS: agent.SilenceSynthesizer{},
		VAD: agent.EnergyVAD{},
	}, agent.NullInput{}, agent.PacedOutput{}, slog.Default())

	publisher := events.NewLoggingPublisher(slog.Default())
	defer publisher.Close()

	orch := orchestrator.New(
		tel,
		orchestrator.NewAgentStarter(controller),
		nil, // default action set
		publisher,
		orchestrator.Config{
			RoomPrefix:         cfg.RoomPrefix,
			CalleeIdentity:     cfg.CalleeIdentity,
			AgentIdentity:      cfg.AgentIdentity,
			TransferIdentity:   cfg.TransferIdentity,
			Instructions:       cfg.Instructions,
			AnswerTimeout:      cfg.AnswerTimeout,
			ParticipantTimeout: cfg.ParticipantTimeout,
			StatusPollInterval: cfg.StatusPollInterval,
			NodeID:             hostname,
		},
		slog.Default(),
	)

	outcome, err := orch.PlaceCall(ctx, meta)
	if err != nil {
		slog.Error("call job failed", "error", err)
		return 1
	}

	slog.Info("call job finished",
		"call_id", outcome.CallID,
		"status", outcome.Status.String(),
		"reason", outcome.Reason,
		"detail", outcome.Detail,
	)
	return 0
}
