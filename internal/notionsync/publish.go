// Package notionsync publishes monthly dashboard summaries to a Notion
// database, one page per month.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-dashboard/internal/dashboard"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

// Result counts what PublishSummary did, or would do in dry-run mode.
type Result struct {
	Created int
	Updated int
	Failed  int
}

// PublishSummary writes one page per month of the view into the database.
// Pages are matched by their "Month" title and updated in place; months
// without a page are created. Per-page failures are logged and counted but
// do not stop the run. The view must be bucketed by month.
func PublishSummary(ctx context.Context, svc NotionService, databaseID string, view *dashboard.View, dryRun bool) (*Result, error) {
	log := logger.FromContext(ctx)

	if view.State.Bucket != domain.BucketMonth {
		return nil, fmt.Errorf("PublishSummary: view must be bucketed by month, got %s", view.State.Bucket)
	}

	summaries, err := Summarize(view.Aggregates, view.Anomalies.Items)
	if err != nil {
		return nil, fmt.Errorf("PublishSummary: %w", err)
	}

	log.Info().
		Int("months", len(summaries)).
		Bool("dry_run", dryRun).
		Msg("Publishing monthly summaries to Notion")

	pages, err := queryAllNotionPages(ctx, svc, databaseID)
	if err != nil {
		return nil, fmt.Errorf("PublishSummary: %w", err)
	}

	existing := make(map[string]string, len(pages))
	for _, p := range pages {
		if title := pageTitle(p); title != "" {
			existing[title] = string(p.ID)
		}
	}
	log.Debug().Int("existing_pages", len(existing)).Msg("Retrieved existing Notion pages")

	res := &Result{}
	for _, s := range summaries {
		month := s.Month.String()
		pageID, found := existing[month]

		if dryRun {
			if found {
				log.Info().Str("month", month).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				res.Updated++
			} else {
				log.Info().Str("month", month).Msg("[DRY RUN] Would create Notion page")
				res.Created++
			}
			continue
		}

		props := SummaryToNotionProperties(s)
		if found {
			if _, err := svc.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("month", month).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			log.Info().Str("month", month).Str("page_id", pageID).Msg("Updated Notion page")
			res.Updated++
			continue
		}

		page, err := svc.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().Err(err).Str("month", month).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Info().Str("month", month).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Msg("Notion publish completed")

	return res, nil
}

// ArchiveMonths archives the pages whose title is one of months.
func ArchiveMonths(ctx context.Context, svc NotionService, databaseID string, months []string, dryRun bool) (int, error) {
	log := logger.FromContext(ctx)

	pages, err := queryAllNotionPages(ctx, svc, databaseID)
	if err != nil {
		return 0, fmt.Errorf("ArchiveMonths: %w", err)
	}

	wanted := make(map[string]bool, len(months))
	for _, m := range months {
		wanted[m] = true
	}

	var archived int
	for _, p := range pages {
		title := pageTitle(p)
		if !wanted[title] {
			continue
		}
		if dryRun {
			log.Info().Str("month", title).Str("page_id", string(p.ID)).Msg("[DRY RUN] Would archive Notion page")
			archived++
			continue
		}
		if err := svc.ArchivePage(ctx, string(p.ID)); err != nil {
			log.Warn().Err(err).Str("month", title).Msg("Failed to archive Notion page")
			continue
		}
		archived++
	}

	return archived, nil
}

// queryAllNotionPages follows the cursor until every page has been read.
func queryAllNotionPages(ctx context.Context, svc NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}
