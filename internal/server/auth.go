// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

const authRealm = "lod-link"

// credentials are the users allowed to change links. Both a user and a
// password must be configured, otherwise nobody is
func (s *Server) credentials() map[string]string {
	if s.conf.Username == "" || s.conf.Password == "" {
		return map[string]string{}
	}
	return map[string]string{s.conf.Username: s.conf.Password}
}

// requireAuth lets a request through only with the configured credentials
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return middleware.BasicAuth(authRealm, s.credentials())(next)
}
