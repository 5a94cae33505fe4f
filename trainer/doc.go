// Package trainer provides the epoch loop of the recurrent classifier: it
// shuffles the training set, feeds minibatches to a learning rule, scores
// validation data and keeps the best weights on disk.
package trainer
