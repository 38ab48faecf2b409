// Package front registers the tenant API and the public guest endpoints.
package front

import (
	"github.com/eventhub-saas/eventhub/internal/analytics"
	"github.com/eventhub-saas/eventhub/internal/checklist"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/guests"
	"github.com/eventhub-saas/eventhub/internal/http/api/front/handlers"
	"github.com/eventhub-saas/eventhub/internal/http/middleware"
	"github.com/eventhub-saas/eventhub/internal/mail"
	"github.com/eventhub-saas/eventhub/internal/photos"
	"github.com/eventhub-saas/eventhub/internal/ratelimit"
	"github.com/eventhub-saas/eventhub/internal/registration"
	"github.com/eventhub-saas/eventhub/internal/seating"
	"github.com/eventhub-saas/eventhub/internal/session"
	"github.com/eventhub-saas/eventhub/internal/timeline"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	DB          *gorm.DB
	Verifier    session.Verifier
	Resolver    *entitlement.Resolver
	PhotoStore  photos.Store
	Sender      mail.Sender
	AppURL      string
	RateLimiter *ratelimit.Manager
}

// RegisterFrontRoutes wires the /v1 tenant API and the /public endpoints.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil || deps.Verifier == nil {
		return
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = entitlement.NewResolver(deps.DB)
	}

	eventSvc := events.NewService(deps.DB, resolver, deps.PhotoStore)
	guestSvc := guests.NewService(deps.DB, resolver)
	seatingSvc := seating.NewService(deps.DB, resolver)
	timelineSvc := timeline.NewService(deps.DB, resolver)
	photoSvc := photos.NewService(deps.DB, resolver, deps.PhotoStore)
	checklistSvc := checklist.NewService(deps.DB)
	analyticsSvc := analytics.NewService(deps.DB, resolver)
	mailSvc := mail.NewService(deps.DB, resolver, deps.Sender, deps.AppURL)
	registrationSvc := registration.NewService(deps.DB)

	publicHandler := handlers.NewPublicHandler(guestSvc, photoSvc, registrationSvc)
	planHandler := handlers.NewPlanFrontHandler(deps.DB)

	public := r.Group("/public")
	public.Use(middleware.RateLimit(deps.RateLimiter, middleware.ByClientIP))
	public.GET("/plans", planHandler.List)
	public.POST("/register", publicHandler.Register)
	public.GET("/rsvp/:token", publicHandler.Invitation)
	public.POST("/rsvp/:token", publicHandler.SubmitRSVP)
	public.POST("/rsvp/:token/photos", publicHandler.UploadPhoto)
	public.GET("/rsvp/:token/gallery", publicHandler.Gallery)

	authed := r.Group("/v1")
	authed.Use(session.Middleware(deps.DB, deps.Verifier))
	authed.Use(middleware.RateLimit(deps.RateLimiter, middleware.ByTenant))
	authed.Use(session.RequirePermission())

	accountHandler := handlers.NewAccountHandler(deps.DB, resolver)
	authed.GET("/me", accountHandler.Me)
	authed.GET("/plans", planHandler.List)

	analyticsHandler := handlers.NewAnalyticsHandler(analyticsSvc, eventSvc, checklistSvc)
	authed.GET("/dashboard", analyticsHandler.Dashboard)

	eventHandler := handlers.NewEventHandler(eventSvc)
	authed.POST("/events", eventHandler.Create)
	authed.GET("/events", eventHandler.List)
	authed.GET("/events/:id", eventHandler.Get)
	authed.PUT("/events/:id", eventHandler.Update)
	authed.DELETE("/events/:id", eventHandler.Delete)
	authed.PATCH("/events/:id/settings", eventHandler.MergeSettings)
	authed.GET("/events/:id/invitation-design", eventHandler.InvitationDesign)
	authed.PUT("/events/:id/invitation-design", eventHandler.SaveInvitationDesign)

	guestHandler := handlers.NewGuestHandler(guestSvc)
	authed.POST("/events/:id/guests", guestHandler.Create)
	authed.GET("/events/:id/guests", guestHandler.List)
	authed.POST("/events/:id/guests/import", guestHandler.Import)
	authed.POST("/events/:id/guests/import/csv", guestHandler.ImportCSV)
	authed.PUT("/events/:id/guests/:guest_id", guestHandler.Update)
	authed.DELETE("/events/:id/guests/:guest_id", guestHandler.Delete)

	seatingHandler := handlers.NewSeatingHandler(seatingSvc)
	authed.GET("/events/:id/tables", seatingHandler.ListTables)
	authed.POST("/events/:id/tables", seatingHandler.CreateTable)
	authed.PUT("/events/:id/tables/:table_id", seatingHandler.UpdateTable)
	authed.DELETE("/events/:id/tables/:table_id", seatingHandler.DeleteTable)
	authed.POST("/events/:id/tables/:table_id/guests", seatingHandler.SeatGuest)
	authed.DELETE("/events/:id/tables/:table_id/guests/:guest_id", seatingHandler.UnseatGuest)
	authed.GET("/events/:id/seating/layout", seatingHandler.Layout)
	authed.GET("/events/:id/seating/highlight", seatingHandler.Highlight)
	authed.POST("/events/:id/seating/drop", seatingHandler.Drop)

	timelineHandler := handlers.NewTimelineHandler(timelineSvc)
	authed.GET("/events/:id/timeline", timelineHandler.List)
	authed.POST("/events/:id/timeline", timelineHandler.Create)
	authed.POST("/events/:id/timeline/reorder", timelineHandler.Reorder)
	authed.PUT("/events/:id/timeline/:item_id", timelineHandler.Update)
	authed.DELETE("/events/:id/timeline/:item_id", timelineHandler.Delete)

	photoHandler := handlers.NewPhotoHandler(photoSvc, eventSvc)
	authed.GET("/events/:id/photos", photoHandler.List)
	authed.POST("/events/:id/photos", photoHandler.Upload)
	authed.GET("/events/:id/photos/archive", photoHandler.Archive)
	authed.PUT("/events/:id/photos/:photo_id/status", photoHandler.SetStatus)
	authed.DELETE("/events/:id/photos/:photo_id", photoHandler.Delete)

	authed.GET("/events/:id/analytics", analyticsHandler.Report)

	checklistHandler := handlers.NewChecklistHandler(checklistSvc)
	authed.GET("/events/:id/checklist", checklistHandler.List)
	authed.POST("/events/:id/checklist", checklistHandler.Create)
	authed.POST("/events/:id/checklist/:item_id/toggle", checklistHandler.Toggle)
	authed.DELETE("/events/:id/checklist/:item_id", checklistHandler.Delete)

	communicationHandler := handlers.NewCommunicationHandler(mailSvc)
	authed.GET("/events/:id/communications", communicationHandler.List)
	authed.POST("/events/:id/invitations", communicationHandler.SendBulk)
	authed.POST("/events/:id/invitations/:guest_id", communicationHandler.SendOne)

	memberHandler := handlers.NewMemberHandler(deps.DB)
	authed.GET("/members", memberHandler.List)
	authed.PUT("/members/:id/permissions", memberHandler.UpdatePermissions)
	authed.GET("/permissions", memberHandler.Definitions)
}
