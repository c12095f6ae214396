// Package server provides http handlers and middlewares.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/gorilla/mux"
	"github.com/mseshachalam/y/app"
	"github.com/mseshachalam/y/encrypt"
	"github.com/mseshachalam/y/engine"
	"github.com/snabb/sitemap"
)

// Server exposes the engine state and actions to the presentation layer
type Server struct {
	Engine *engine.Engine
	Conf   *app.Config
}

// StoriesHandler serves the ordered feed snapshot as json
func (s *Server) StoriesHandler(enableCors bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if enableCors {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

			if r.Method == "OPTIONS" {
				return
			}
		}

		snapshot := s.Engine.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(snapshot)
		if err != nil {
			log.Println(err)
		}
	}
}

// ArticleHandler opens the reading session for a story and serves the
// translated article once the session settles.
func (s *Server) ArticleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		id, err := strconv.ParseInt(vars["id"], 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		session, done := s.Engine.OpenStory(id)
		if done != nil {
			select {
			case <-done:
				session = s.Engine.Session()
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if session.State != engine.SessionReady {
			w.WriteHeader(http.StatusAccepted)
		}
		err = json.NewEncoder(w).Encode(session)
		if err != nil {
			log.Println(err)
		}
	}
}

// CloseSessionHandler returns a settled reading session to idle
func (s *Server) CloseSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Engine.CloseSession()
		w.WriteHeader(http.StatusOK)
	}
}

// LoadMoreHandler asks the engine for the next story page
func (s *Server) LoadMoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Engine.LoadMore()
		w.WriteHeader(http.StatusAccepted)
	}
}

// NotificationsHandler serves the queued toasts
func (s *Server) NotificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := s.Engine.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(snapshot.Notifications)
		if err != nil {
			log.Println(err)
		}
	}
}

// DismissNotificationHandler drops the oldest queued toast
func (s *Server) DismissNotificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Engine.DismissNotification()
		w.WriteHeader(http.StatusOK)
	}
}

// ReloadHandler retries a failed initial load
func (s *Server) ReloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Engine.Reload()
		w.WriteHeader(http.StatusAccepted)
	}
}

// SitemapHandler serves sitemap.xml
func (s *Server) SitemapHandler(key *[32]byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := s.Engine.Snapshot()

		sm := sitemap.New()
		for _, it := range snapshot.Stories {
			added := time.Unix(it.Time, 0)
			if it.URL == "" {
				continue
			}
			h, err := encrypt.EncAndHex(it.URL, key)
			if err != nil {
				log.Println(err)
				continue
			}
			sm.Add(&sitemap.URL{
				Loc:        fmt.Sprintf("%s/l/%s", s.Conf.SiteBaseURL, h),
				LastMod:    &added,
				ChangeFreq: sitemap.Hourly,
			})
		}

		_, err := sm.WriteTo(w)
		if err != nil {
			log.Println(err)
		}
	}
}

// FeedHandler serves rss|atom|json feeds from the current stories
func (s *Server) FeedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := s.Engine.Snapshot()

		vars := mux.Vars(r)
		feedType := vars["type"]
		now := time.Now()
		feed := &feeds.Feed{
			Title:       "Translated Tech & News",
			Link:        &feeds.Link{Href: s.Conf.SiteBaseURL},
			Description: "Hackernews stories translated as they happen",
			Created:     now,
		}
		var feedItems []*feeds.Item
		for _, it := range snapshot.Stories {
			feedItem := &feeds.Item{
				Title:   it.DisplayTitle(),
				Link:    &feeds.Link{Href: it.URL},
				Author:  &feeds.Author{Name: it.By},
				Created: time.Unix(it.Time, 0),
			}
			if a, ok := s.Engine.Cache.Get(it.ID); ok && strings.TrimSpace(a.TLDR) != "" {
				feedItem.Description = a.TLDR
			}
			feedItem.Id = strconv.FormatInt(it.ID, 10)
			feedItems = append(feedItems, feedItem)
		}

		feed.Items = feedItems

		switch feedType {
		case "atom":
			atom, err := feed.ToAtom()
			if err != nil {
				fmt.Fprintf(w, "%s", err)
			}

			w.Header().Set("Content-Type", "application/xml; charset=utf-8")
			fmt.Fprintf(w, "%s", atom)
			return
		case "rss":
			rss, err := feed.ToRss()
			if err != nil {
				fmt.Fprintf(w, "%s", err)
			}
			w.Header().Set("Content-Type", "application/xml; charset=utf-8")
			fmt.Fprintf(w, "%s", rss)
			return
		default:
			// json
			j, err := feed.ToJSON()
			if err != nil {
				fmt.Fprintf(w, "%s", err)
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, "%s", j)
			return
		}
	}
}

// LinkHandler redirects encrypted story links
func (s *Server) LinkHandler(key *[32]byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		h := vars["hash"]

		link, err := encrypt.DecFromHex(h, key)
		if err != nil {
			log.Println(err)
			if r.Method == http.MethodGet {
				http.NotFound(w, r)
				return
			}
		}

		if r.Method == http.MethodPost {
			log.Println(link)
			w.WriteHeader(http.StatusOK)
			return
		}

		log.Println(link)
		http.Redirect(w, r, link, http.StatusSeeOther)
	}
}

// FileHandler serves a file from a given path
func (s *Server) FileHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}
}
