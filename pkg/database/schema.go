package database

import (
	"context"
	"fmt"
)

// Constraint names referenced by repositories when classifying unique violations.
const (
	ConstraintSubmissionOncePerEmail = "submissions_once_per_email_idx"
	ConstraintCatalogSlug            = "reward_templates_slug_key"
)

// Schema creates every table the service needs. Statements are idempotent.
//
// The rewards table stores templates and claims side by side; kind is the
// discriminator and the CHECK constraints keep each variant's columns honest.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL DEFAULT '',
	display_name    TEXT NOT NULL DEFAULT '',
	photo_url       TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
	referral_count  INTEGER NOT NULL DEFAULT 0 CHECK (referral_count >= 0),
	rewards_claimed INTEGER NOT NULL DEFAULT 0 CHECK (rewards_claimed >= 0),
	created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	last_login_at   TIMESTAMP WITH TIME ZONE
);

CREATE INDEX IF NOT EXISTS users_email_idx ON users (lower(email));

CREATE TABLE IF NOT EXISTS submissions (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL,
	type        TEXT NOT NULL,
	referred_by TEXT,
	status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'verified', 'rejected')),
	city        TEXT NOT NULL DEFAULT '',
	answers     JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS submissions_once_per_email_idx
	ON submissions (lower(email), type)
	WHERE type IN ('pet-survey', 'referral');
CREATE INDEX IF NOT EXISTS submissions_referred_by_idx ON submissions (referred_by, created_at DESC);

CREATE TABLE IF NOT EXISTS rewards (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL CHECK (kind IN ('template', 'claim')),
	user_id         TEXT,
	template_id     TEXT,
	name            TEXT,
	description     TEXT,
	points_required INTEGER,
	status          TEXT NOT NULL,
	created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	processed_at    TIMESTAMP WITH TIME ZONE,
	CONSTRAINT rewards_template_shape CHECK (
		kind <> 'template' OR (user_id IS NULL AND name IS NOT NULL AND status IN ('active', 'inactive'))
	),
	CONSTRAINT rewards_claim_shape CHECK (
		kind <> 'claim' OR (user_id IS NOT NULL AND status IN ('pending', 'approved', 'rejected'))
	)
);

CREATE INDEX IF NOT EXISTS rewards_claims_by_user_idx ON rewards (user_id, created_at DESC) WHERE kind = 'claim';
CREATE INDEX IF NOT EXISTS rewards_kind_status_idx ON rewards (kind, status);

CREATE TABLE IF NOT EXISTS reward_templates (
	id              TEXT PRIMARY KEY,
	slug            TEXT NOT NULL CONSTRAINT reward_templates_slug_key UNIQUE,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	points_required INTEGER NOT NULL CHECK (points_required >= 0),
	status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
	created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db TxQuerier) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
