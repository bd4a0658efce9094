// Package hcl loads experiment files written in HCL into a config.Model.
//
// An experiment is described by four block types, which may be spread over
// any number of .hcl files in a directory:
//
//	artifact "gem5_repo" {
//	  name    = "gem5"
//	  kind    = "git repo"
//	  path    = "gem5/"
//	  command = "git clone https://gem5.googlesource.com/public/gem5"
//	}
//
//	kernel "vmlinux" {
//	  versions = ["5.2.3", "4.19.83"]
//	  name     = "vmlinux-${version}"
//	  path     = "linux-stable/vmlinux-${version}"
//	  inputs   = [artifact.linux_repo]
//	}
//
//	sweep {
//	  boot_types = ["init", "systemd"]
//	  cpu_types  = ["atomic", "simple", "o3"]
//	  num_cpus   = [1, 2, 4, 8]
//	  mem_types  = ["classic", "MI_example", "MESI_Two_Level"]
//	}
//
//	experiment {
//	  config_script  = "configs-boot-tests/run_exit.py"
//	  kernel_root    = "linux-stable"
//	  simulator      = artifact.gem5_binary
//	  simulator_mesi = artifact.gem5_binary_mesi
//	}
//
// References of the form artifact.<id> evaluate to the declaration id.
package hcl
