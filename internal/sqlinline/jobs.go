package sqlinline

const QInsertJob = `--sql 80f2d925-b37c-4952-b349-28d673fcd791
insert into generation_jobs (
    id, provider, external_id, owner_id, kind, model_id, prompt, title,
    source_media_url, media_inputs, aspect_ratio, duration, country, status,
    cost_charged, created_at, updated_at
) values (
    $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::text,
    $9::text, $10::text[], $11::text, $12::int, $13::text, $14::text,
    $15::int, $16::timestamptz, $16::timestamptz
);
`

// QApplyJobResult only touches processing rows so terminal jobs never regress.
const QApplyJobResult = `--sql c51fae8a-b4b6-411a-a5e9-119db52f67ad
update generation_jobs
set status = $2::text,
    result_url = $3::text,
    alternate_result_url = $4::text,
    error_description = $5::text,
    updated_at = now(),
    completed_at = now()
where id = $1::uuid
  and status = 'processing';
`

const QMarkJobRefunded = `--sql c9d6caf6-96a2-4b53-b2d4-6f97aef4aee2
update generation_jobs
set refunded = true, updated_at = now()
where id = $1::uuid;
`

const QSelectJob = `--sql 795979d1-68ca-4261-b64d-06184ce90f8c
select id::text, provider, external_id, owner_id, kind, model_id, prompt, title,
       source_media_url, media_inputs, aspect_ratio, duration, country, status,
       result_url, alternate_result_url, error_description, cost_charged, refunded,
       created_at, updated_at, completed_at
from generation_jobs
where id = $1::uuid;
`

const QListJobsByOwner = `--sql 50878a9c-69b1-40b4-b3a8-025351d3359c
select id::text, provider, external_id, owner_id, kind, model_id, prompt, title,
       source_media_url, media_inputs, aspect_ratio, duration, country, status,
       result_url, alternate_result_url, error_description, cost_charged, refunded,
       created_at, updated_at, completed_at
from generation_jobs
where owner_id = $1::text
order by created_at desc, id desc;
`

const QListPendingJobs = `--sql d011b346-c6f3-4131-8fa0-fb3bb54a1531
select id::text, provider, external_id, owner_id, kind, model_id, prompt, title,
       source_media_url, media_inputs, aspect_ratio, duration, country, status,
       result_url, alternate_result_url, error_description, cost_charged, refunded,
       created_at, updated_at, completed_at
from generation_jobs
where status = 'processing'
order by created_at asc
limit $1::int;
`

const QListUnrefundedJobs = `--sql bf0dc8d6-70e0-4a8c-ac88-010cbdce106a
select id::text, provider, external_id, owner_id, kind, model_id, prompt, title,
       source_media_url, media_inputs, aspect_ratio, duration, country, status,
       result_url, alternate_result_url, error_description, cost_charged, refunded,
       created_at, updated_at, completed_at
from generation_jobs
where status = 'failed'
  and not refunded
  and cost_charged > 0
order by created_at asc
limit $1::int;
`

const QSelectJobOwner = `--sql a9575ee3-8079-4aff-9773-25a2b773d049
select owner_id
from generation_jobs
where id = $1::uuid;
`

const QDeleteJob = `--sql c2387f57-1a9f-4c50-a4fa-5ca27b2e52f8
delete from generation_jobs
where id = $1::uuid
  and owner_id = $2::text;
`
