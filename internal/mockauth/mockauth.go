// Package mockauth answers the OAuth 2.1 handshake that some MCP
// clients (Claude Code among them) insist on performing against any
// HTTP MCP server: RFC 8414 server metadata, RFC 7591 dynamic client
// registration, and an authorize/token pair that approves everyone.
// On a loopback-only tool server real credentials would add nothing;
// without these routes the client's discovery probe gets a 404 and
// aborts the connection.
package mockauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// codeTTL is how long an issued authorization code stays exchangeable.
const codeTTL = 10 * time.Minute

// Server implements the approve-everything OAuth surface.
type Server struct {
	baseURL string
	logger  *log.Logger

	mu     sync.Mutex
	issued map[string]time.Time // authorization code -> issue time
}

// New returns a Server whose metadata points every endpoint at baseURL.
func New(baseURL string, logger *log.Logger) *Server {
	return &Server{baseURL: baseURL, logger: logger, issued: make(map[string]time.Time)}
}

// RegisterRoutes mounts the four OAuth routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.requireMethod(http.MethodGet, s.metadata))
	mux.HandleFunc("/register", s.requireMethod(http.MethodPost, s.register))
	mux.HandleFunc("/authorize", s.requireMethod(http.MethodGet, s.authorize))
	mux.HandleFunc("/token", s.requireMethod(http.MethodPost, s.token))
}

// requireMethod rejects anything but the given verb with an OAuth-shaped
// error body, so clients that parse every response as JSON stay happy.
func (s *Server) requireMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			s.fail(w, http.StatusMethodNotAllowed, "invalid_request", "use "+method)
			return
		}
		h(w, r)
	}
}

// serverMetadata is the RFC 8414 discovery document.
type serverMetadata struct {
	Issuer                   string   `json:"issuer"`
	AuthorizationEndpoint    string   `json:"authorization_endpoint"`
	TokenEndpoint            string   `json:"token_endpoint"`
	RegistrationEndpoint     string   `json:"registration_endpoint"`
	ResponseTypes            []string `json:"response_types_supported"`
	GrantTypes               []string `json:"grant_types_supported"`
	CodeChallengeMethods     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethods []string `json:"token_endpoint_auth_methods_supported"`
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	s.logger.Println("mockauth: serving discovery metadata")
	s.reply(w, http.StatusOK, serverMetadata{
		Issuer:                   s.baseURL,
		AuthorizationEndpoint:    s.baseURL + "/authorize",
		TokenEndpoint:            s.baseURL + "/token",
		RegistrationEndpoint:     s.baseURL + "/register",
		ResponseTypes:            []string{"code"},
		GrantTypes:               []string{"authorization_code", "refresh_token"},
		CodeChallengeMethods:     []string{"S256"},
		TokenEndpointAuthMethods: []string{"none"},
	})
}

// register accepts any RFC 7591 registration body and hands back a
// client id, echoing the fields clients check for round-trip fidelity.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RedirectURIs []string `json:"redirect_uris"`
		ClientName   string   `json:"client_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid_client_metadata", "body must be JSON")
		return
	}

	id := "chanflow-client-" + randomToken(8)
	s.logger.Printf("mockauth: registered client %s (%s)", id, body.ClientName)

	resp := map[string]any{
		"client_id":                  id,
		"client_id_issued_at":        time.Now().Unix(),
		"token_endpoint_auth_method": "none",
	}
	if len(body.RedirectURIs) > 0 {
		resp["redirect_uris"] = body.RedirectURIs
	}
	if body.ClientName != "" {
		resp["client_name"] = body.ClientName
	}
	s.reply(w, http.StatusCreated, resp)
}

// authorize skips the consent step entirely: it mints a code and
// bounces straight back to redirect_uri.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := url.Parse(q.Get("redirect_uri"))
	if q.Get("redirect_uri") == "" || err != nil {
		s.fail(w, http.StatusBadRequest, "invalid_request", "a parseable redirect_uri is required")
		return
	}

	grant := randomToken(16)
	s.mu.Lock()
	s.issued[grant] = time.Now()
	s.mu.Unlock()
	s.logger.Printf("mockauth: auto-approved client %s", q.Get("client_id"))

	dest := target.Query()
	dest.Set("code", grant)
	if state := q.Get("state"); state != "" {
		dest.Set("state", state)
	}
	target.RawQuery = dest.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// tokenResponse is the successful /token body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid_request", "form body required")
		return
	}

	grantType := r.FormValue("grant_type")
	switch grantType {
	case "authorization_code":
		if !s.redeem(r.FormValue("code")) {
			s.fail(w, http.StatusBadRequest, "invalid_grant", "unknown or expired code")
			return
		}
	case "refresh_token":
		// Refreshes always succeed; there is nothing to verify against.
	default:
		s.fail(w, http.StatusBadRequest, "unsupported_grant_type", "grant_type "+grantType+" not supported")
		return
	}

	s.logger.Printf("mockauth: issued token (%s)", grantType)
	s.reply(w, http.StatusOK, tokenResponse{
		AccessToken:  "chanflow-access-" + randomToken(16),
		TokenType:    "Bearer",
		ExpiresIn:    int((24 * time.Hour).Seconds()),
		RefreshToken: "chanflow-refresh-" + randomToken(16),
	})
}

// redeem consumes an authorization code, reporting whether it was live.
// Codes are single-use and lapse after codeTTL.
func (s *Server) redeem(grant string) bool {
	if grant == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	issuedAt, ok := s.issued[grant]
	delete(s.issued, grant)
	return ok && time.Since(issuedAt) < codeTTL
}

func (s *Server) reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// fail writes an RFC 6749 error object.
func (s *Server) fail(w http.ResponseWriter, status int, code, description string) {
	s.reply(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func randomToken(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
