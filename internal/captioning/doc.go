// Package captioning coordinates one captioning run: fetch the media, pick
// the smallest MP4 asset, transcribe it, format and save the SRT file,
// optionally archive it, and upload it as a caption track.
//
// ProcessProject and ToggleProject fan the per-video work out over a fixed
// pool of workers. A failing video is recorded in its result slot and never
// stops its siblings.
package captioning
