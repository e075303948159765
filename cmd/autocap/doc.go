// Command autocap generates captions for Wistia videos.
//
// The root command captions one video (--video), every video of a project
// (--project), lists projects (--list-projects) or toggles the captions
// control (--toggle-captions). Subcommands cover configuration, preflight
// checks and the response cache.
package main
