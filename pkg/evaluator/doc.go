/*
Package evaluator implements §4.4: classifying a container's current replica
set into one outcome the replication manager loop can act on directly.

Evaluate delegates origin/index classification to a pkg/counter.Counter, then
folds the result into:

  - OK — nothing to do.
  - UnderReplicated — at least one origin/index needs more healthy copies and
    at least one usable source exists somewhere in the container.
  - OverReplicated — at least one origin/index has surplus in-service copies
    and nothing needs under-replication repair.
  - Unrecoverable — an origin/index needs more copies but none of the
    under-replicated origins/indices has a source replica (a healthy
    in-service or maintenance copy for Ratis, a healthy in-service copy of
    another index for EC) to copy from.
  - MisPlaced — replica counts are correct, but two or more healthy
    in-service copies of one origin sit on the same rack (only checked when
    a NodeLookup is supplied).

A container can be both under- and over-replicated at the same time (distinct
origins in the multi-origin case); UnderReplicated takes priority since
repairing data loss risk outranks reclaiming space.
*/
package evaluator
