// Package config loads worker configuration from flags and environment.
package config

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const defaultInstructions = "You are a scheduling assistant for a dental practice. Your interface with the user will be voice. " +
	"You will be on a call with a patient who has an upcoming appointment. Your goal is to confirm the appointment details."

// Config holds the outbound caller worker configuration.
type Config struct {
	// LiveKit API settings
	URL       string
	APIKey    string
	APISecret string

	// SIP settings
	SIPTrunkID string

	// Participant identities within the call room
	CalleeIdentity   string // the dialed party
	AgentIdentity    string // the agent's own participant
	TransferIdentity string // the transfer target, when a transfer is placed

	// RoomPrefix is prepended to the generated room name.
	RoomPrefix string

	// Call timing
	AnswerTimeout      time.Duration // bound on the dial + answer-wait phase
	ParticipantTimeout time.Duration // bound on waiting for a participant to appear
	StatusPollInterval time.Duration // call status poll interval while armed

	// Instructions is the base agent prompt; job metadata appends caller context.
	Instructions string

	// Job input as a raw JSON payload (see package job).
	Metadata string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from command line flags with environment
// variable overrides. A .env.local file is loaded first when present,
// only used for local development.
func Load() *Config {
	godotenv.Load(".env.local")

	cfg := &Config{
		AnswerTimeout:      15 * time.Second,
		ParticipantTimeout: 10 * time.Second,
		StatusPollInterval: 100 * time.Millisecond,
	}

	flag.StringVar(&cfg.URL, "url", "", "LiveKit server URL")
	flag.StringVar(&cfg.SIPTrunkID, "trunk", "", "SIP trunk ID for outbound dialing")
	flag.StringVar(&cfg.CalleeIdentity, "callee-identity", "phone_user", "Participant identity for the dialed party")
	flag.StringVar(&cfg.AgentIdentity, "agent-identity", "outbound-agent", "Participant identity for the agent")
	flag.StringVar(&cfg.TransferIdentity, "transfer-identity", "transfer_user", "Participant identity for the transfer target")
	flag.StringVar(&cfg.RoomPrefix, "room-prefix", "call-", "Prefix for generated room names")
	flag.DurationVar(&cfg.AnswerTimeout, "answer-timeout", cfg.AnswerTimeout, "How long to wait for the callee to answer")
	flag.DurationVar(&cfg.ParticipantTimeout, "participant-timeout", cfg.ParticipantTimeout, "How long to wait for a participant to join the room")
	flag.DurationVar(&cfg.StatusPollInterval, "poll-interval", cfg.StatusPollInterval, "Call status poll interval")
	flag.StringVar(&cfg.Instructions, "instructions", defaultInstructions, "Base agent instructions")
	flag.StringVar(&cfg.Metadata, "metadata", "", "Job metadata JSON (phone_number, transfer_to, ...)")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "logformat", "text", "Log format (text, json)")

	flag.Parse()

	// Environment variables override flags when set
	if v := os.Getenv("LIVEKIT_URL"); v != "" {
		cfg.URL = v
	}
	cfg.APIKey = os.Getenv("LIVEKIT_API_KEY")
	cfg.APISecret = os.Getenv("LIVEKIT_API_SECRET")
	if v := os.Getenv("SIP_TRUNK_ID"); v != "" {
		cfg.SIPTrunkID = v
	}
	if v := os.Getenv("JOB_METADATA"); v != "" {
		cfg.Metadata = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

// Validate checks that the settings required to place a call are present.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("LiveKit URL not configured")
	}
	if c.APIKey == "" || c.APISecret == "" {
		return errors.New("LiveKit API credentials not configured")
	}
	if c.SIPTrunkID == "" {
		return errors.New("SIP trunk ID not configured")
	}
	return nil
}
