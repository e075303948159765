// Package wistia is a client for the subset of the Wistia data API the
// captioner uses: projects, medias, caption tracks and media customizations.
//
// All requests authenticate with HTTP basic auth as user "api" with the
// account's API password. Non-2xx responses surface as *services.HTTPError.
package wistia
