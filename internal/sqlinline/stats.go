package sqlinline

const QStatsAccounts = `--sql a9044cf1-b819-47ef-b5e2-533c9718b663
with purchases as (
    select owner_id, sum(delta) as credits
    from credit_ledger_entries
    where reason = 'purchase'
    group by owner_id
)
select
    (select count(*) from credit_accounts) as total_users,
    (select count(*) from purchases) as paid_users,
    coalesce((select sum(credits) from purchases), 0)::bigint as credits_purchased,
    (select count(distinct owner_id) from generation_jobs where created_at > now() - interval '24 hours') as active_24h;
`

const QStatsJobsByStatus = `--sql 3f762328-d530-4b2b-98e6-c024340007c7
select status, count(*)
from generation_jobs
group by status;
`
