package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reel_tracker/internal/model"
	"reel_tracker/internal/provider"
	"reel_tracker/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Reel Tracker!

Track engagement metrics (likes, comments, views) for Instagram posts.

Quick start:
1. /add <campaign> | <creator> | <post url> — track a single post
2. /bulk — import a whole creator sheet at once
3. /stats — engagement dashboard

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Tracking:
/add <campaign> | <creator> | <post url> [| interval_sec] — track a post
/bulk — multi-line import: first line campaign, then a tab-separated
sheet with Name, Profile Link, Followers, Live Link columns
/list — show tracked posts
/remove_creator <id> — delete a creator with all posts and history

Metrics:
/stats — engagement dashboard for all campaigns
/campaign <id> — dashboard for one campaign
/poll — poll every active post now
/poll <post_id> — poll one post now

Danger zone:
/purge — delete all tracked data`)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) {
	a, err := ParseAddArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	campaignID, err := b.store.UpsertCampaign(ctx, a.Campaign)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save campaign: %v", err))
		return
	}

	creator := &model.Creator{Handle: CreatorHandle(a.Creator)}
	if provider.ProfileHandle(a.Creator) != "" {
		creator.ProfileURL = provider.NormalizeURL(a.Creator)
	} else {
		creator.DisplayName = a.Creator
	}
	creatorID, err := b.store.UpsertCreator(ctx, creator)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save creator: %v", err))
		return
	}

	post := &model.Post{
		CampaignID:      campaignID,
		CreatorID:       creatorID,
		URL:             a.URL,
		Shortcode:       provider.Shortcode(a.URL),
		PollIntervalSec: a.IntervalSec,
	}
	if err := b.store.CreatePost(ctx, post); err != nil {
		if errors.Is(err, storage.ErrDuplicatePost) {
			b.reply(chatID, "This post is already tracked.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Failed to save post: %v", err))
		return
	}
	if err := b.store.InsertScheduledSnapshot(ctx, post.ID); err != nil {
		b.log.Error("insert scheduled snapshot", "post_id", post.ID, "error", err)
	}

	b.reply(chatID, fmt.Sprintf("Post #%d added to %q (every %ds).\n%s\nIt will be polled on the next sweep, or use /poll %d now.",
		post.ID, a.Campaign, post.PollIntervalSec, post.URL, post.ID))
}

func (b *Bot) handleBulk(ctx context.Context, chatID int64, args string) {
	msg, err := ParseBulkMessage(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	campaignID, err := b.store.UpsertCampaign(ctx, msg.Campaign)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save campaign: %v", err))
		return
	}

	lineErrs := msg.LineErrors
	var inserted []int64
	for _, row := range msg.Rows {
		handle := provider.ProfileHandle(row.ProfileURL)
		if handle == "" {
			handle = CreatorHandle(row.Name)
		}
		creatorID, err := b.store.UpsertCreator(ctx, &model.Creator{
			Handle:        handle,
			DisplayName:   row.Name,
			ProfileURL:    row.ProfileURL,
			FollowersText: row.FollowersText,
		})
		if err != nil {
			lineErrs = append(lineErrs, fmt.Sprintf("%s: %v", row.Name, err))
			continue
		}

		post := &model.Post{
			CampaignID:      campaignID,
			CreatorID:       creatorID,
			URL:             row.PostURL,
			Shortcode:       provider.Shortcode(row.PostURL),
			PollIntervalSec: defaultIntervalSec,
		}
		if err := b.store.CreatePost(ctx, post); err != nil {
			if errors.Is(err, storage.ErrDuplicatePost) {
				lineErrs = append(lineErrs, fmt.Sprintf("%s: already tracked (%s)", row.Name, row.PostURL))
			} else {
				lineErrs = append(lineErrs, fmt.Sprintf("%s: %v", row.Name, err))
			}
			continue
		}
		if err := b.store.InsertScheduledSnapshot(ctx, post.ID); err != nil {
			b.log.Error("insert scheduled snapshot", "post_id", post.ID, "error", err)
		}
		inserted = append(inserted, post.ID)
	}

	b.reply(chatID, FormatBulkReport(msg.Campaign, len(inserted), lineErrs))

	if len(inserted) > 0 {
		b.reply(chatID, fmt.Sprintf("Running initial poll for %d post(s)...", len(inserted)))
		b.poller.PollIDs(ctx, inserted)
		b.reply(chatID, "Initial poll finished. Use /stats to see the numbers.")
	}
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	posts, err := b.store.ListActivePosts(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatPostList(posts))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	d, err := b.store.Dashboard(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatDashboard("All campaigns", d))
}

func (b *Bot) handleCampaign(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /campaign <id>")
		return
	}

	campaign, err := b.store.GetCampaign(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Campaign #%d not found.", id))
		return
	}

	d, err := b.store.CampaignDashboard(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatDashboard(campaign.Name, d))
}

func (b *Bot) handlePoll(ctx context.Context, chatID int64, args string) {
	if !b.cfg.ManualPollEnabled {
		b.reply(chatID, "Manual polling is disabled.")
		return
	}

	if args == "" {
		b.reply(chatID, "Polling all active posts...")
		n, err := b.poller.PollAll(ctx)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Poll failed: %v", err))
			return
		}
		b.reply(chatID, fmt.Sprintf("Polled %d post(s). Use /stats to see the numbers.", n))
		return
	}

	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /poll [post_id]")
		return
	}
	if _, err := b.store.GetPost(ctx, id); err != nil {
		b.reply(chatID, fmt.Sprintf("Post #%d not found.", id))
		return
	}

	b.poller.PollPost(ctx, id)

	snaps, err := b.store.ListSnapshots(ctx, id)
	if err != nil || len(snaps) == 0 {
		b.reply(chatID, fmt.Sprintf("Post #%d polled, but no snapshot was recorded.", id))
		return
	}
	b.reply(chatID, FormatSnapshot(id, snaps[len(snaps)-1]))
}

func (b *Bot) handleRemoveCreator(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /remove_creator <id>")
		return
	}

	creator, err := b.store.GetCreator(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Creator #%d not found.", id))
		return
	}

	posts, snapshots, err := b.store.DeleteCreator(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error deleting creator: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Creator #%d %q deleted with %d post(s) and %d snapshot(s).",
		id, creator.Handle, posts, snapshots))
}

func (b *Bot) handlePurge(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Delete ALL campaigns, creators, posts and snapshots? This cannot be undone.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete everything", "purge:confirm"),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "purge:cancel"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send purge confirmation", "error", err)
	}
}

func (b *Bot) handlePurgeConfirmed(ctx context.Context, chatID int64) {
	counts, err := b.store.DeleteAllData(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Purge failed: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Purged %d snapshot(s), %d post(s), %d creator(s), %d campaign(s).",
		counts.Snapshots, counts.Posts, counts.Creators, counts.Campaigns))
}
