// Package acquisition downloads or decodes generated images and writes them
// to storage under {unix-ms}-{provider}-{style}.png names.
//
// Images of a batch are processed strictly in order. Each one is retried
// on its own, optionally trimmed of uniform borders, and once the batch is
// done a single ImagesReady event lists what was saved.
package acquisition
