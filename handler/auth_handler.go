package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"csatguardian/repository"
	"csatguardian/utils"
)

const defaultTokenExpiryHours = 24

// AuthHandler handles engineer authentication
type AuthHandler struct {
	caseRepo  *repository.CaseRepository
	jwtSecret string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(caseRepo *repository.CaseRepository, jwtSecret string) *AuthHandler {
	return &AuthHandler{caseRepo: caseRepo, jwtSecret: jwtSecret}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/engineers/login
// Validates credentials and returns a JWT scoped to the engineer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad request", "Invalid JSON body.")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "Bad request", "email and password are required.")
		return
	}

	engineer, err := h.caseRepo.GetEngineerByEmail(req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid credentials.")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal error", "Login failed.")
		return
	}

	if !engineer.IsActive {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Account is inactive.")
		return
	}

	if err := utils.CheckPassword(req.Password, engineer.PasswordHash); err != nil {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid credentials.")
		return
	}

	expiryHours := defaultTokenExpiryHours
	if v := os.Getenv("JWT_EXPIRY_HOURS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			expiryHours = parsed
		}
	}

	token, err := utils.GenerateEngineerJWT(engineer.EngineerID, []byte(h.jwtSecret), expiryHours)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal error", "Failed to issue token.")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token":       token,
		"engineer_id": engineer.EngineerID,
		"full_name":   engineer.FullName,
	})
}
