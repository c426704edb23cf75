package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib"
	"github.com/inventerdesign/pushdeck/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service) http.Handler {
	ctrl := &controller{cfg, log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		// Browser-facing routes: called by the service worker and the
		// subscription handshake, no credentials available there.
		r.Get("/vapid-public-key", ctrl.vapidPublicKey)
		r.Post("/subscribers", ctrl.registerSubscriber)
		r.Post("/subscribers/unsubscribe", ctrl.unsubscribe)
		r.Post("/campaigns/{campaign_id}/click", ctrl.trackClick)

		r.Group(func(r chi.Router) {
			if creds := cfg.GetCreds(); len(creds) > 0 {
				r.Use(middleware.BasicAuth("pushdeck", creds))
			} else {
				log.Sugar().Info("Auth is disabled since no credentials are defined")
			}

			r.Get("/subscribers", ctrl.listSubscribers)
			r.Delete("/subscribers/{subscriber_id}", ctrl.deleteSubscriber)

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/", ctrl.listCampaigns)
				r.Post("/", ctrl.createCampaign)
				r.Get("/{campaign_id}", ctrl.getCampaign)
				r.Post("/{campaign_id}/send", ctrl.sendCampaign)
			})

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", ctrl.listTemplates)
				r.Post("/", ctrl.createTemplate)
				r.Delete("/{template_id}", ctrl.deleteTemplate)
			})

			r.Route("/rss-feeds", func(r chi.Router) {
				r.Get("/", ctrl.listFeeds)
				r.Post("/", ctrl.createFeed)
				r.Patch("/{feed_id}", ctrl.updateFeed)
				r.Delete("/{feed_id}", ctrl.deleteFeed)
			})

			r.Get("/stats/overview", ctrl.overviewStats)
		})
	})

	return r
}

type controller struct {
	cfg *config.Config
	log *zap.Logger
	svc *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "error", err)
		return
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(b)
	}
}

func decode[T any](r *http.Request) (T, error) {
	var body T
	err := json.NewDecoder(r.Body).Decode(&body)
	return body, err
}

func (ctrl *controller) vapidPublicKey(w http.ResponseWriter, r *http.Request) {
	ctrl.resolve(w, http.StatusOK, map[string]any{"publicKey": ctrl.cfg.VAPIDPublicKey})
}

func (ctrl *controller) registerSubscriber(w http.ResponseWriter, r *http.Request) {
	input, err := decode[lib.SubscriberInput](r)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	sub, err := ctrl.svc.RegisterSubscriber(r.Context(), input)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, SubscriberView{}.From(sub))
}

func (ctrl *controller) unsubscribe(w http.ResponseWriter, r *http.Request) {
	input, err := decode[struct {
		Endpoint string `json:"endpoint"`
	}](r)
	if err != nil || input.Endpoint == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("endpoint is required"))
		return
	}

	if err := ctrl.svc.Unsubscribe(r.Context(), input.Endpoint); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

// trackClick never surfaces errors: the caller is a notification-click
// handler that cannot react to them.
func (ctrl *controller) trackClick(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaign_id")

	if err := ctrl.svc.RecordClick(r.Context(), campaignID); err != nil {
		ctrl.log.Sugar().Errorw("Failed to record click", "campaign_id", campaignID, "err", err)
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) listSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := ctrl.svc.ListSubscribers(r.Context(), r.URL.Query().Get("browser"))
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[*models.Subscriber, SubscriberView](subs))
}

func (ctrl *controller) deleteSubscriber(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.DeleteSubscriber(r.Context(), chi.URLParam(r, "subscriber_id")); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) listCampaigns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	campaigns, err := ctrl.svc.ListCampaigns(r.Context(), limit)
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[*models.Campaign, CampaignView](campaigns))
}

func (ctrl *controller) getCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := ctrl.svc.GetCampaign(r.Context(), chi.URLParam(r, "campaign_id"))
	if errors.Is(err, lib.ErrCampaignNotFound) {
		ctrl.reject(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, CampaignView{}.From(campaign))
}

func (ctrl *controller) createCampaign(w http.ResponseWriter, r *http.Request) {
	input, err := decode[lib.CampaignInput](r)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if user, _, ok := r.BasicAuth(); ok {
		input.CreatedBy = user
	}

	campaign, err := ctrl.svc.CreateCampaign(r.Context(), input)
	if errors.Is(err, lib.ErrTemplateNotFound) {
		ctrl.reject(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, CampaignView{}.From(campaign))
}

func (ctrl *controller) sendCampaign(w http.ResponseWriter, r *http.Request) {
	result, err := ctrl.svc.SendCampaign(r.Context(), chi.URLParam(r, "campaign_id"))
	switch {
	case errors.Is(err, lib.ErrCampaignNotFound):
		ctrl.reject(w, http.StatusNotFound, err)
		return
	case errors.Is(err, lib.ErrAlreadySent):
		ctrl.reject(w, http.StatusConflict, err)
		return
	case err != nil:
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}

	ctrl.resolve(w, http.StatusOK, map[string]any{
		"success": !result.Fatal,
		"sent":    result.Sent,
		"failed":  result.Failed,
	})
}

func (ctrl *controller) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := ctrl.svc.ListTemplates(r.Context())
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[*models.Template, TemplateView](templates))
}

func (ctrl *controller) createTemplate(w http.ResponseWriter, r *http.Request) {
	input, err := decode[lib.TemplateInput](r)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if user, _, ok := r.BasicAuth(); ok {
		input.CreatedBy = user
	}

	tmpl, err := ctrl.svc.CreateTemplate(r.Context(), input)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, TemplateView{}.From(tmpl))
}

func (ctrl *controller) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.DeleteTemplate(r.Context(), chi.URLParam(r, "template_id")); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) listFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := ctrl.svc.ListFeeds(r.Context())
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[*models.Feed, FeedView](feeds))
}

func (ctrl *controller) createFeed(w http.ResponseWriter, r *http.Request) {
	input, err := decode[lib.FeedInput](r)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	feed, err := ctrl.svc.CreateFeed(r.Context(), input)
	if errors.Is(err, lib.ErrFeedExists) {
		ctrl.reject(w, http.StatusConflict, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FeedView{}.From(feed))
}

func (ctrl *controller) updateFeed(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[lib.FeedPatch](r)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	feed, err := ctrl.svc.UpdateFeed(r.Context(), chi.URLParam(r, "feed_id"), patch)
	if errors.Is(err, lib.ErrFeedNotFound) {
		ctrl.reject(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FeedView{}.From(feed))
}

func (ctrl *controller) deleteFeed(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.DeleteFeed(r.Context(), chi.URLParam(r, "feed_id")); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) overviewStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ctrl.svc.GetOverviewStats(r.Context())
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, stats)
}
