// This application mirrors a translated hacker news feed from its backend,
// keeps the local view consistent as translations finish, and serves it to
// the presentation layer.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	sim "github.com/ulule/limiter/v3/drivers/store/memory"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mseshachalam/y/app"
	"github.com/mseshachalam/y/backend"
	"github.com/mseshachalam/y/cache"
	"github.com/mseshachalam/y/dbp"
	"github.com/mseshachalam/y/encrypt"
	"github.com/mseshachalam/y/engine"
	"github.com/mseshachalam/y/readstate"
	"github.com/mseshachalam/y/server"
	"github.com/mseshachalam/y/stream"
)

func main() {
	var conf *app.Config
	configFilePath := os.Getenv("APP_CONFIG_PATH")
	f, err := os.Open(configFilePath)
	if err != nil {
		log.Println(err)
		return
	}
	dec := json.NewDecoder(f)
	err = dec.Decode(&conf)
	f.Close()
	if err != nil {
		log.Println(err)
		return
	}
	if conf.PageSize <= 0 {
		conf.PageSize = app.DefaultPageSize
	}

	key, err := encrypt.KeyFromHex(conf.EncryptKey)
	if err != nil {
		log.Println("ENC_KEY is not a hex encoded 32 byte key")
		return
	}

	db, err := sql.Open("sqlite3", conf.AppDatabasePath)
	if err != nil {
		log.Println(err)
		return
	}

	defer db.Close()

	err = dbp.SetupTables(db, dbp.CreateTablesStmts)
	if err != nil {
		log.Println(err)
		return
	}

	store := sim.NewStore()
	rate, err := limiter.NewRateFromFormatted(conf.RateLimit)
	if err != nil {
		log.Println(err)
		return
	}

	rlMiddleware := stdlib.NewMiddleware(limiter.New(store, rate, limiter.WithTrustForwardHeader(true)))

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	kv := &dbp.Store{DB: db}
	reads := readstate.NewStore(kv, app.ReadStateKey, app.ReadStateLimit)
	articles := cache.NewCache()
	client := &backend.Client{BaseURL: conf.BackendBaseURL}
	factory := stream.NewHTTPFactory(conf.BackendBaseURL, nil)

	eng := engine.New(client, articles, reads, factory)
	eng.PageSize = conf.PageSize
	eng.Key = key

	err = eng.Start(ctx)
	if err != nil {
		log.Println(err)
		return
	}
	defer eng.Stop()

	srvr := &server.Server{Engine: eng, Conf: conf}

	r := mux.NewRouter()
	r.Handle("/stories.json", rlMiddleware.Handler(server.WithRequestHeadersLogging(srvr.StoriesHandler(true)))).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/article/{id}", rlMiddleware.Handler(server.WithRequestHeadersLogging(srvr.ArticleHandler()))).Methods(http.MethodGet)
	r.Handle("/session/close", rlMiddleware.Handler(srvr.CloseSessionHandler())).Methods(http.MethodPost)
	r.Handle("/loadmore", rlMiddleware.Handler(srvr.LoadMoreHandler())).Methods(http.MethodPost)
	r.Handle("/reload", rlMiddleware.Handler(srvr.ReloadHandler())).Methods(http.MethodPost)
	r.Handle("/notifications", rlMiddleware.Handler(srvr.NotificationsHandler())).Methods(http.MethodGet)
	r.Handle("/notifications/dismiss", rlMiddleware.Handler(srvr.DismissNotificationHandler())).Methods(http.MethodPost)

	if conf.ServeFeeds {
		r.Handle("/feed/{type}", rlMiddleware.Handler(server.WithBotsAndCrawlersBlocking(srvr.FeedHandler()))).Methods(http.MethodGet)
	}
	if conf.ServeSitemap {
		r.Handle("/sitemap.xml", rlMiddleware.Handler(server.WithBotsAndCrawlersBlocking(srvr.SitemapHandler(key)))).Methods(http.MethodGet)
	}
	r.Handle("/l/{hash}", rlMiddleware.Handler(server.WithRequestHeadersLogging(srvr.LinkHandler(key)))).Methods(http.MethodGet, http.MethodPost)

	if conf.HaveRobotsTxt {
		r.Handle("/robots.txt", rlMiddleware.Handler(srvr.FileHandler(conf.RobotsTextFilePath))).Methods(http.MethodGet)
	}

	http.Handle("/", r)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%s", conf.HTTPPort),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		eng.Stop()
		srv.Close()
	}()

	log.Println(srv.ListenAndServe())
}
