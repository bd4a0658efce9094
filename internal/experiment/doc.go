// Package experiment turns points of the boot-test sweep into run
// descriptors. It owns the output directory layout, the choice between the
// default and the MESI simulator build, and the kernel lookup.
package experiment
