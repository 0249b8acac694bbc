package network

// Package network assembles the model around a CHP pair the way an energy
// system framework would: it declares input power, capacity and status
// variables once, adds branch operating bounds (including the big-M form
// for committable and extendable branches), and can wrap the pair in a
// minimal demand scenario for solving. Coupling constraints themselves come
// from core/coupling.
