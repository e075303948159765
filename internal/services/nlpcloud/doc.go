// Package nlpcloud is a client for the NLP Cloud asynchronous speech
// recognition API.
//
// Submit queues a transcription for a publicly reachable media URL and
// returns the URL where the result will appear; Result fetches that URL and
// reports nil while the job is still running.
package nlpcloud
