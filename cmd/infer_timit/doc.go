// Package main scores a trained TIMIT phoneme classifier on the test set.
//
// It takes the same flags as train_timit; -layer, -hidden and
// -firing_thresh must describe the model stored in -dstmodel.
package main
