// Package main trains a recurrent or spiking phoneme classifier on TIMIT.
//
// The layer (rnn, lif, alif), the learning rule (bptt, eprop) and the
// compute backend are chosen by flag. After training the test set is
// scored and a timit_<unix time>.json.zlib record holding the arguments,
// the per epoch log and the test result is written to -out.
//
//	train_timit -layer alif -learning_rule eprop -eprop_mode adaptive -reg
package main
