// coedit - collaborative document editing core
// Copyright (C) 2025 the coedit authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coedit-dev/coedit-go/pkg/errors"
	"github.com/coedit-dev/coedit-go/pkg/managers/collab"
	"github.com/coedit-dev/coedit-go/pkg/models/annotation"
	"github.com/coedit-dev/coedit-go/pkg/models/doc"
	"github.com/coedit-dev/coedit-go/pkg/sharedTypes"
)

func newHttpController(cm collab.Manager) httpController {
	return httpController{cm: cm}
}

type httpController struct {
	cm collab.Manager
}

func (h *httpController) GetRouter() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/status", h.status)

	router.
		NewRoute().
		Methods("POST").
		Path("/doc").
		HandlerFunc(h.createDocument)
	router.
		NewRoute().
		Methods("GET").
		Path("/doc/{docId}/user/{userId}").
		HandlerFunc(h.getDocument)
	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/operation").
		HandlerFunc(h.applyOperation)

	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/collaborator").
		HandlerFunc(h.inviteCollaborator)
	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/collaborator/{userId}/accept").
		HandlerFunc(h.acceptInvitation)
	router.
		NewRoute().
		Methods("DELETE").
		Path("/doc/{docId}/collaborator/{userId}").
		HandlerFunc(h.removeCollaborator)

	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/session/{userId}").
		HandlerFunc(h.startSession)
	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/session/{userId}/touch").
		HandlerFunc(h.touchSession)
	router.
		NewRoute().
		Methods("DELETE").
		Path("/doc/{docId}/session/{userId}").
		HandlerFunc(h.endSession)
	router.
		NewRoute().
		Methods("GET").
		Path("/doc/{docId}/session/user/{userId}").
		HandlerFunc(h.listActiveSessions)

	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/comment").
		HandlerFunc(h.addComment)
	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/comment/{commentId}/reply").
		HandlerFunc(h.replyToComment)
	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/suggestion").
		HandlerFunc(h.addSuggestion)
	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/suggestion/{suggestionId}/accept").
		HandlerFunc(h.acceptSuggestion)
	router.
		NewRoute().
		Methods("POST").
		Path("/doc/{docId}/suggestion/{suggestionId}/reject").
		HandlerFunc(h.rejectSuggestion)

	return router
}

func errorResponse(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	_, _ = w.Write([]byte(message))
}

func (h *httpController) status(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(200)
	_, _ = w.Write([]byte("coedit is alive (go)\n"))
}

func getId(r *http.Request, name string) (sharedTypes.UUID, error) {
	id, err := sharedTypes.ParseUUID(mux.Vars(r)[name])
	if err != nil {
		return sharedTypes.UUID{}, &errors.ValidationError{
			Msg: "invalid " + name,
		}
	}
	return id, nil
}

func respond(
	w http.ResponseWriter,
	r *http.Request,
	code int,
	body interface{},
	err error,
	msg string,
) {
	if err != nil {
		if errors.IsValidationError(err) {
			errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.IsNotAuthorizedError(err) {
			errorResponse(w, http.StatusForbidden, err.Error())
			return
		}
		if errors.IsNotFoundError(err) {
			errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.IsAlreadyCollaboratorError(err) ||
			errors.IsInvalidStateError(err) ||
			errors.IsRetryableError(err) {
			errorResponse(
				w, http.StatusConflict,
				errors.GetPublicMessage(err, "conflict"),
			)
			return
		}
		log.Printf("%s %s: %s: %v", r.Method, r.URL.Path, msg, err)
		errorResponse(w, http.StatusInternalServerError, msg)
		return
	}
	if body != nil {
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	} else {
		w.WriteHeader(code)
	}
}

type createDocumentRequestBody struct {
	OwnerId sharedTypes.UUID     `json:"owner_id"`
	Content sharedTypes.Snapshot `json:"content"`
}

func (h *httpController) createDocument(w http.ResponseWriter, r *http.Request) {
	var requestBody createDocumentRequestBody
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	d, err := h.cm.CreateDocument(
		r.Context(), requestBody.OwnerId, requestBody.Content,
	)
	respond(w, r, 201, d, err, "cannot create doc")
}

func (h *httpController) getDocument(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	userId, err := getId(r, "userId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	v, err := h.cm.GetDocument(r.Context(), docId, userId)
	respond(w, r, 200, v, err, "cannot get doc")
}

func (h *httpController) applyOperation(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	var op sharedTypes.Operation
	if err = json.NewDecoder(r.Body).Decode(&op); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	committed, err := h.cm.ApplyOperation(r.Context(), docId, op)
	respond(w, r, 200, committed, err, "cannot apply operation")
}

type inviteRequestBody struct {
	InviterId   sharedTypes.UUID `json:"inviter_id"`
	UserId      sharedTypes.UUID `json:"user_id"`
	Role        doc.Role         `json:"role"`
	Permissions doc.Permissions  `json:"permissions,omitempty"`
}

func (h *httpController) inviteCollaborator(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	var requestBody inviteRequestBody
	if err = json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	c, err := h.cm.InviteCollaborator(
		r.Context(), docId,
		requestBody.InviterId, requestBody.UserId,
		requestBody.Role, requestBody.Permissions,
	)
	respond(w, r, 201, c, err, "cannot invite collaborator")
}

func (h *httpController) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	userId, err := getId(r, "userId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	c, err := h.cm.AcceptInvitation(r.Context(), docId, userId)
	respond(w, r, 200, c, err, "cannot accept invitation")
}

func (h *httpController) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	userId, err := getId(r, "userId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	removerId, err := sharedTypes.ParseUUID(r.URL.Query().Get("remover_id"))
	if err != nil {
		errorResponse(w, 400, "invalid remover_id")
		return
	}
	err = h.cm.RemoveCollaborator(r.Context(), docId, removerId, userId)
	respond(w, r, 204, nil, err, "cannot remove collaborator")
}

func (h *httpController) startSession(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	userId, err := getId(r, "userId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	s, err := h.cm.StartSession(r.Context(), docId, userId)
	respond(w, r, 201, s, err, "cannot start session")
}

type touchSessionRequestBody struct {
	Cursor *collab.Cursor `json:"cursor"`
}

func (h *httpController) touchSession(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	userId, err := getId(r, "userId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	var requestBody touchSessionRequestBody
	if err = json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	err = h.cm.TouchSession(r.Context(), docId, userId, requestBody.Cursor)
	respond(w, r, 204, nil, err, "cannot touch session")
}

func (h *httpController) endSession(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	userId, err := getId(r, "userId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	err = h.cm.EndSession(r.Context(), docId, userId)
	respond(w, r, 204, nil, err, "cannot end session")
}

type listSessionsResponseBody struct {
	Sessions []collab.Session `json:"sessions"`
}

func (h *httpController) listActiveSessions(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	userId, err := getId(r, "userId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	sessions, err := h.cm.ListActiveSessions(r.Context(), docId, userId)
	respond(
		w, r, 200,
		&listSessionsResponseBody{Sessions: sessions},
		err, "cannot list sessions",
	)
}

type addCommentRequestBody struct {
	AuthorId sharedTypes.UUID   `json:"author_id"`
	Comment  annotation.Comment `json:"comment"`
}

func (h *httpController) addComment(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	var requestBody addCommentRequestBody
	if err = json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	err = h.cm.AddComment(
		r.Context(), docId, requestBody.AuthorId, &requestBody.Comment,
	)
	respond(w, r, 201, &requestBody.Comment, err, "cannot add comment")
}

func (h *httpController) replyToComment(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	commentId, err := getId(r, "commentId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	var requestBody addCommentRequestBody
	if err = json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	err = h.cm.ReplyToComment(
		r.Context(), docId, commentId,
		requestBody.AuthorId, &requestBody.Comment,
	)
	respond(w, r, 201, &requestBody.Comment, err, "cannot reply to comment")
}

type addSuggestionRequestBody struct {
	AuthorId   sharedTypes.UUID      `json:"author_id"`
	Suggestion annotation.Suggestion `json:"suggestion"`
}

func (h *httpController) addSuggestion(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	var requestBody addSuggestionRequestBody
	if err = json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	err = h.cm.AddSuggestion(
		r.Context(), docId, requestBody.AuthorId, &requestBody.Suggestion,
	)
	respond(w, r, 201, &requestBody.Suggestion, err, "cannot add suggestion")
}

type resolveSuggestionRequestBody struct {
	ReviewerId sharedTypes.UUID `json:"reviewer_id"`
}

func (h *httpController) acceptSuggestion(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	suggestionId, err := getId(r, "suggestionId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	var requestBody resolveSuggestionRequestBody
	if err = json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	err = h.cm.AcceptSuggestion(
		r.Context(), docId, suggestionId, requestBody.ReviewerId,
	)
	respond(w, r, 204, nil, err, "cannot accept suggestion")
}

func (h *httpController) rejectSuggestion(w http.ResponseWriter, r *http.Request) {
	docId, err := getId(r, "docId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	suggestionId, err := getId(r, "suggestionId")
	if err != nil {
		errorResponse(w, 400, err.Error())
		return
	}
	var requestBody resolveSuggestionRequestBody
	if err = json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		errorResponse(w, 400, "invalid request body")
		return
	}
	err = h.cm.RejectSuggestion(
		r.Context(), docId, suggestionId, requestBody.ReviewerId,
	)
	respond(w, r, 204, nil, err, "cannot reject suggestion")
}
