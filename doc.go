// Package main provides the entry point for the gridbot community bot.
// It runs a Discord gateway and a Fiber web dashboard in one process: chat
// commands for levels, economy, moderation, giveaways, tickets and invite
// tracking, all gated by a file backed access resolver, with gorm handling
// persistence and an optional snapshot engine syncing data between hosts.
package main
