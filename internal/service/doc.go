// Package service runs one genotyping batch.
//
// Overview
// A Service owns the immutable RunConfig of a run. Run performs the
// pre-dispatch checks, fans the jobs out to a bounded pool of executors
// and persists the ordered result.
//
// Data flow:
//
//	Service.Run
//	    |-- Check: manifest header, output dir, scratch dir, events   (fatal)
//	    |-- job.BuildAll: one Descriptor per event
//	    |-- parallel.Map(threads): job.Executor.Execute per Descriptor (never fails)
//	    |-- batch.Aggregate: records index aligned with events
//	    `-- uploaders: output dir, stdout, s3                          (fatal)
//
// Invariants:
//   - A fatal error before dispatch leaves no scratch files behind.
//   - Once dispatched, every event produces exactly one record.
//   - At most RunConfig.Threads genotyper processes run at a time.
//   - Jobs share nothing mutable except the scratch directory, where each
//     of them uses uniquely named files.
package service
