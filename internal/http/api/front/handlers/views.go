package handlers

import (
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/photos"
	"github.com/eventhub-saas/eventhub/internal/seating"
	"github.com/gin-gonic/gin"
)

func eventView(e *models.Event) gin.H {
	return gin.H{
		"id":               e.ID,
		"tenant_id":        e.TenantID,
		"name":             e.Name,
		"event_type":       e.EventType,
		"date":             e.Date,
		"end_date":         e.EndDate,
		"location_name":    e.LocationName,
		"location_address": e.LocationAddress,
		"dress_code":       e.DressCode,
		"custom_message":   e.CustomMessage,
		"max_guests":       e.MaxGuests,
		"status":           e.Status,
		"settings":         rawJSON(e.Settings, "{}"),
		"created_by":       e.CreatedBy,
		"created_at":       e.CreatedAt,
		"updated_at":       e.UpdatedAt,
	}
}

func eventViews(list []models.Event) []gin.H {
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, eventView(&list[i]))
	}
	return out
}

func guestView(g *models.Guest) gin.H {
	names := []string(g.PlusOnesNames)
	if names == nil {
		names = []string{}
	}
	return gin.H{
		"id":                   g.ID,
		"event_id":             g.EventID,
		"full_name":            g.FullName,
		"email":                g.Email,
		"phone":                g.Phone,
		"invitation_token":     g.InvitationToken,
		"rsvp_status":          g.RSVPStatus,
		"plus_ones_allowed":    g.PlusOnesAllowed,
		"plus_ones_confirmed":  g.PlusOnesConfirmed,
		"plus_ones_names":      names,
		"dietary_restrictions": g.DietaryRestrictions.Data(),
		"group_name":           g.GroupName,
		"table_id":             g.TableID,
		"notes":                g.Notes,
		"invitation_sent_at":   g.InvitationSentAt,
		"invitation_opened_at": g.InvitationOpenedAt,
		"responded_at":         g.RespondedAt,
		"created_at":           g.CreatedAt,
		"updated_at":           g.UpdatedAt,
	}
}

func guestViews(list []models.Guest) []gin.H {
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, guestView(&list[i]))
	}
	return out
}

func tableView(t *models.EventTable) gin.H {
	guestIDs := make([]uint64, 0, len(t.Guests))
	for _, g := range t.Guests {
		guestIDs = append(guestIDs, g.ID)
	}
	return gin.H{
		"id":         t.ID,
		"event_id":   t.EventID,
		"name":       t.Name,
		"shape":      t.Shape,
		"seats":      t.Seats,
		"x":          t.X,
		"y":          t.Y,
		"rotation":   t.Rotation,
		"notes":      t.Notes,
		"guest_ids":  guestIDs,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}

func tableViews(list []models.EventTable) []gin.H {
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, tableView(&list[i]))
	}
	return out
}

func layoutView(editor *seating.Editor) gin.H {
	return gin.H{
		"tables":   tableViews(editor.Tables()),
		"shapes":   editor.Shapes(),
		"unseated": guestViews(editor.Unseated()),
	}
}

func timelineView(item *models.TimelineItem) gin.H {
	return gin.H{
		"id":          item.ID,
		"event_id":    item.EventID,
		"title":       item.Title,
		"description": item.Description,
		"start_time":  item.StartTime,
		"end_time":    item.EndTime,
		"icon":        item.Icon,
		"order":       item.Order,
		"created_at":  item.CreatedAt,
		"updated_at":  item.UpdatedAt,
	}
}

func timelineViews(list []models.TimelineItem) []gin.H {
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, timelineView(&list[i]))
	}
	return out
}

func photoView(p *photos.View) gin.H {
	return gin.H{
		"id":                   p.ID,
		"event_id":             p.EventID,
		"uploaded_by_guest_id": p.UploadedByGuestID,
		"url":                  p.URL,
		"caption":              p.Caption,
		"file_size_bytes":      p.FileSizeBytes,
		"moderation_status":    p.ModerationStatus,
		"metadata":             rawJSON(p.Metadata, "{}"),
		"uploaded_at":          p.UploadedAt,
	}
}

func photoViews(list []photos.View) []gin.H {
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, photoView(&list[i]))
	}
	return out
}

func checklistView(item *models.ChecklistItem) gin.H {
	return gin.H{
		"id":           item.ID,
		"event_id":     item.EventID,
		"title":        item.Title,
		"description":  item.Description,
		"is_completed": item.IsCompleted,
		"sort_order":   item.SortOrder,
		"due_date":     item.DueDate,
		"completed_at": item.CompletedAt,
		"created_at":   item.CreatedAt,
	}
}

func checklistViews(list []models.ChecklistItem) []gin.H {
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, checklistView(&list[i]))
	}
	return out
}

func communicationView(m *models.Communication) gin.H {
	return gin.H{
		"id":               m.ID,
		"event_id":         m.EventID,
		"type":             m.Type,
		"subject":          m.Subject,
		"status":           m.Status,
		"recipients_count": m.RecipientsCount,
		"sent_at":          m.SentAt,
		"metadata":         rawJSON(m.Metadata, "{}"),
		"created_at":       m.CreatedAt,
	}
}

func planView(plan *models.SubscriptionPlan) gin.H {
	return gin.H{
		"id":               plan.ID,
		"name":             plan.Name,
		"slug":             plan.Slug,
		"price_usd":        plan.PriceUSD,
		"max_guests":       plan.MaxGuests,
		"max_events":       plan.MaxEvents,
		"storage_quota_mb": plan.StorageQuotaMB,
		"features":         entitlement.DecodeFeatures(plan.Features),
		"is_active":        plan.IsActive,
		"sort_order":       plan.SortOrder,
	}
}
