package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sentimentd/sentimentd/assist"
	"github.com/sentimentd/sentimentd/feedback"
	"github.com/sentimentd/sentimentd/sentiment"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// replyDrafter is the drafting collaborator as the API needs it.
type replyDrafter interface {
	Draft(ctx context.Context, prompt string) (string, error)
}

var (
	makeSignalChannel = func() chan os.Signal { return make(chan os.Signal, 1) }
	notifySignals     = func(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
	newServer         = func(addr string, handler http.Handler) httpServer {
		return &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       30 * time.Second,
		}
	}
	logFatal = func(v ...interface{}) { log.Fatal(v...) }
	runMain  = func() error {
		port := flag.String("port", "8000", "The port the server should listen on.")
		authToken := flag.String("auth-token", "", "Bearer token required on every endpoint except health checks.")
		stemming := flag.Bool("stemming", false, "Stem terms before fitting and scoring.")
		snapshotFile := flag.String("snapshot-file", "", "Absolute path used to load and save the feedback corpus.")
		assistURL := flag.String("assist-url", "", "Base URL of the reply drafting service.")
		assistKey := flag.String("assist-key", "", "API key for the reply drafting service.")
		assistModel := flag.String("assist-model", "", "Model requested from the reply drafting service.")
		flag.Parse()

		var opts []sentiment.Option
		if *stemming {
			opts = append(opts, sentiment.WithTokenizer(sentiment.StemmingTokenizer("english")))
		}

		api := &FeedbackAPI{
			store: feedback.NewStore(sentiment.NewClassifier(opts...)),
		}

		if *assistURL != "" {
			drafter, err := assist.NewClient(assist.Config{
				BaseURL: *assistURL,
				APIKey:  *assistKey,
				Model:   *assistModel,
			})
			if err != nil {
				return err
			}
			api.drafter = drafter
		}

		if *snapshotFile != "" {
			if err := api.store.LoadSnapshotFile(*snapshotFile); err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					return err
				}
				log.Printf("No snapshot at %s; starting with an empty corpus.", *snapshotFile)
			}
		}
		api.ready.Store(true)

		mux := http.NewServeMux()
		api.RegisterRoutes(mux)
		var handler http.Handler = mux
		if *authToken != "" {
			handler = withAuthorizationToken(mux, *authToken)
		}

		server := newServer(":"+*port, handler)
		log.Printf("Server is listening on port %s.", *port)

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logFatal(err)
			}
		}()

		sigCh := makeSignalChannel()
		notifySignals(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		api.ready.Store(false)

		if *snapshotFile != "" {
			if err := api.store.SaveSnapshotFile(*snapshotFile); err != nil {
				log.Printf("failed to save snapshot: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return server.Shutdown(ctx)
	}
)

// FeedbackAPI serves the feedback classification HTTP endpoints. All shared
// state lives in the store, which serializes classifier access internally.
type FeedbackAPI struct {
	store   *feedback.Store
	drafter replyDrafter
	ready   atomic.Bool
}

// RegisterRoutes registers all API routes on the provided ServeMux.
func (api *FeedbackAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/info", api.InfoHandler)
	mux.HandleFunc("/classify", api.ClassifyHandler)
	mux.HandleFunc("/feedback", api.FeedbackHandler)
	mux.HandleFunc("/train/", api.TrainHandler)
	mux.HandleFunc("/relabel/", api.RelabelHandler)
	mux.HandleFunc("/import", api.ImportHandler)
	mux.HandleFunc("/draft", api.DraftHandler)
	mux.HandleFunc("/flush", api.FlushHandler)
	mux.HandleFunc("/healthz", HealthHandler)
	mux.HandleFunc("/readyz", api.ReadyHandler)
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	jsonResponse, err := json.Marshal(value)
	if err != nil {
		http.Error(w, `{"error":"failed to marshal response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonResponse); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readBody(w http.ResponseWriter, req *http.Request) (string, bool) {
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBodyBytes)
	defer req.Body.Close()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return "", false
	}

	return string(body), true
}

func requireMethod(w http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// categoryFromPath extracts and validates the category segment after prefix.
func categoryFromPath(path, prefix string) (sentiment.Category, bool) {
	segment := strings.TrimPrefix(path, prefix)
	if segment == "" || strings.Contains(segment, "/") {
		return "", false
	}
	return sentiment.ParseCategory(segment)
}

// relabelFromPath parses "/relabel/{id}/{category}".
func relabelFromPath(path string) (string, sentiment.Category, bool) {
	segments := strings.Split(strings.TrimPrefix(path, "/relabel/"), "/")
	if len(segments) != 2 || segments[0] == "" {
		return "", "", false
	}
	category, ok := sentiment.ParseCategory(segments[1])
	if !ok {
		return "", "", false
	}
	return segments[0], category, true
}

// withAuthorizationToken requires a bearer token on every endpoint except the
// health checks.
func withAuthorizationToken(next http.Handler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/healthz" || req.URL.Path == "/readyz" {
			next.ServeHTTP(w, req)
			return
		}

		parts := strings.Fields(req.Header.Get("Authorization"))
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] != token {
			w.Header().Set("WWW-Authenticate", `Bearer realm="sentimentd"`)
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}

		next.ServeHTTP(w, req)
	})
}

// InfoHandler returns corpus and model statistics.
func (api *FeedbackAPI) InfoHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}

	writeJSON(w, http.StatusOK, NewInfoResponse(api.store.Info()))
}

// ClassifyHandler classifies request body text without storing it.
func (api *FeedbackAPI) ClassifyHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, api.store.Classify(body))
}

// FeedbackHandler lists stored feedback on GET and stores request body text
// under its predicted label on POST.
func (api *FeedbackAPI) FeedbackHandler(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, NewEntryListResponse(api.store.Entries()))
	case http.MethodPost:
		body, ok := readBody(w, req)
		if !ok {
			return
		}
		entry, err := api.store.Add(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, NewEntryResponse(entry))
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// TrainHandler stores request body text under a human-supplied label and
// re-fits the model.
func (api *FeedbackAPI) TrainHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	category, ok := categoryFromPath(req.URL.Path, "/train/")
	if !ok {
		writeError(w, http.StatusNotFound, "invalid category route")
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	entry, err := api.store.AddLabeled(body, category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, NewEntryResponse(entry))
}

// RelabelHandler corrects a stored entry's label and re-fits the model with
// the updated corpus.
func (api *FeedbackAPI) RelabelHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	id, category, ok := relabelFromPath(req.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "invalid relabel route")
		return
	}

	entry, err := api.store.Relabel(id, category)
	if err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, NewEntryResponse(entry))
}

// ImportHandler bulk-imports labeled documents from a CSV request body.
func (api *FeedbackAPI) ImportHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	docs, err := feedback.ImportCSV(strings.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	imported, err := api.store.ImportDocuments(docs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		Imported: imported,
		Info:     NewInfoResponse(api.store.Info()),
	})
}

// DraftHandler asks the drafting collaborator for a reply to the request
// body feedback text.
func (api *FeedbackAPI) DraftHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	if api.drafter == nil {
		writeError(w, http.StatusServiceUnavailable, "reply drafting is not configured")
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}
	if strings.TrimSpace(body) == "" {
		writeError(w, http.StatusBadRequest, "empty feedback text")
		return
	}

	draft, err := api.drafter.Draft(req.Context(), body)
	if err != nil {
		writeError(w, http.StatusBadGateway, "reply drafting failed")
		return
	}

	writeJSON(w, http.StatusOK, DraftResponse{Draft: draft})
}

// FlushHandler deletes all feedback and model state and gives us a fresh slate.
func (api *FeedbackAPI) FlushHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	api.store.Flush()
	writeJSON(w, http.StatusOK, NewInfoResponse(api.store.Info()))
}

// HealthHandler returns liveness status for process health checks.
func HealthHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler returns readiness status for traffic checks.
func (api *FeedbackAPI) ReadyHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	if !api.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func main() {
	if err := runMain(); err != nil {
		logFatal(err)
	}
}
